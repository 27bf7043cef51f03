package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/floodrisk/internal/ahp"
	"github.com/sells-group/floodrisk/internal/classify"
	"github.com/sells-group/floodrisk/internal/pipeline"
	"github.com/sells-group/floodrisk/internal/rasterio"
	"github.com/sells-group/floodrisk/internal/report"
	"github.com/sells-group/floodrisk/internal/risk"
	"github.com/sells-group/floodrisk/internal/scenario"
	"github.com/sells-group/floodrisk/internal/store"
	"github.com/sells-group/floodrisk/internal/zones"
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Run a full flood-risk assessment",
	Long: "Loads factor grids, resolves weights (given directly or from a comparison matrix), classifies every factor " +
		"and combines them into one risk grid. Inputs come from flags or a --scenario file.",
	Example: `  floodrisk assess --elevation dem.asc --slope slope.asc --rainfall rain.asc --proximity prox.asc \
    --matrix "1,3,5,7;1/3,1,3,5;1/5,1/3,1,3;1/7,1/5,1/3,1" --output risk.asc --report risk.xlsx
  floodrisk assess --scenario pune.yaml --zones high_zones.geojson`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		req, err := assessRequest(cmd)
		if err != nil {
			return err
		}
		arts, err := artifactsFromFlags(cmd)
		if err != nil {
			return err
		}

		var st store.Store
		if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
			st, err = optionalStore(ctx)
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close() //nolint:errcheck
			}
		}

		_, err = runAssess(ctx, os.Stdout, st, req, arts)
		return err
	},
}

func init() {
	addAssessFlags(assessCmd)
	rootCmd.AddCommand(assessCmd)
}

func addAssessFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("scenario", "", "YAML scenario file (replaces factor and weight flags)")
	for _, k := range classify.Kinds {
		f.String(string(k), "", fmt.Sprintf("%s grid (ESRI ASCII)", k))
		f.Float64(string(k)+"-low", 0, fmt.Sprintf("%s low threshold (default from config)", k))
		f.Float64(string(k)+"-high", 0, fmt.Sprintf("%s high threshold (default from config)", k))
	}
	f.Float64Slice("weights", nil, "weights in factor order (elevation, slope, rainfall, proximity; given factors only)")
	f.String("matrix", "", "pairwise comparison matrix in factor order")
	f.String("judgments", "", "upper-triangle judgments in factor order")
	f.String("method", "", "eigen or column-mean (default from config)")
	f.String("name", "assessment", "run name")
	f.String("output", "", "write the combined grid here (.asc or .shp)")
	f.String("shapefile", "", "also export classified cells as a shapefile")
	f.String("report", "", "write an XLSX category summary")
	f.String("zones", "", "write contiguous zones as GeoJSON")
	f.String("zone-category", "high", "category for --zones: low, moderate or high")
	f.Bool("override-consistency", false, "accept AHP weights whose CR exceeds the limit")
	f.Bool("no-store", false, "do not record the run")
	cmd.MarkFlagsMutuallyExclusive("weights", "matrix", "judgments")
}

// artifacts are optional outputs written after a successful run.
type artifacts struct {
	Shapefile    string
	Report       string
	Zones        string
	ZoneCategory risk.Category
}

// artifactsFromFlags reads the artifact flags. An unknown --zone-category is
// rejected here so it never reaches a recorded run.
func artifactsFromFlags(cmd *cobra.Command) (artifacts, error) {
	f := cmd.Flags()
	a := artifacts{ZoneCategory: risk.High}
	a.Shapefile, _ = f.GetString("shapefile")
	a.Report, _ = f.GetString("report")
	a.Zones, _ = f.GetString("zones")
	if c, _ := f.GetString("zone-category"); c != "" {
		a.ZoneCategory = parseCategory(c)
		if a.ZoneCategory == 0 {
			return artifacts{}, eris.Errorf("invalid --zone-category %q: want low, moderate or high", c)
		}
	}
	return a, nil
}

func parseCategory(s string) risk.Category {
	for _, c := range []risk.Category{risk.Low, risk.Moderate, risk.High} {
		if c.String() == s {
			return c
		}
	}
	return 0
}

// assessRequest builds the pipeline request from --scenario or the factor flags.
func assessRequest(cmd *cobra.Command) (pipeline.Request, error) {
	f := cmd.Flags()
	override, _ := f.GetBool("override-consistency")

	if path, _ := f.GetString("scenario"); path != "" {
		s, err := scenario.LoadFile(path)
		if err != nil {
			return pipeline.Request{}, err
		}
		req, err := s.Request(cfg.Thresholds)
		if err != nil {
			return pipeline.Request{}, err
		}
		if f.Changed("output") {
			req.Output, _ = f.GetString("output")
		}
		req.OverrideConsistency = req.OverrideConsistency || override
		if req.Method == "" && len(req.Matrix) > 0 {
			req.Method = ahp.Method(cfg.Engine.Method)
		}
		return req, nil
	}

	req := pipeline.Request{OverrideConsistency: override}
	req.Name, _ = f.GetString("name")
	req.Output, _ = f.GetString("output")

	for _, k := range classify.Kinds {
		path, _ := f.GetString(string(k))
		if path == "" {
			continue
		}
		th, _ := cfg.Thresholds.For(string(k))
		if f.Changed(string(k) + "-low") {
			th.Low, _ = f.GetFloat64(string(k) + "-low")
		}
		if f.Changed(string(k) + "-high") {
			th.High, _ = f.GetFloat64(string(k) + "-high")
		}
		req.Factors = append(req.Factors, pipeline.Factor{
			Name:   string(k),
			Source: path,
			Spec:   classify.DefaultSpec(k, th.Low, th.High),
		})
	}
	if len(req.Factors) == 0 {
		return pipeline.Request{}, eris.New("at least one factor grid is required (--elevation, --slope, --rainfall, --proximity) or --scenario")
	}

	req.Weights, _ = f.GetFloat64Slice("weights")
	matrix, _ := f.GetString("matrix")
	judgments, _ := f.GetString("judgments")
	if matrix != "" || judgments != "" {
		m, err := buildMatrix(matrix, judgments, len(req.Factors))
		if err != nil {
			return pipeline.Request{}, err
		}
		req.Matrix = m
		method, _ := f.GetString("method")
		if method == "" {
			method = cfg.Engine.Method
		}
		req.Method = ahp.Method(method)
	}
	return req, req.Validate()
}

func engineOptions() pipeline.Options {
	return pipeline.Options{
		ConsistencyLimit:    cfg.Engine.ConsistencyLimit,
		WeightTolerance:     cfg.Engine.WeightTolerance,
		Workers:             cfg.Engine.Workers,
		StrictReciprocal:    cfg.Engine.StrictReciprocal,
		ReciprocalTolerance: cfg.Engine.ReciprocalTolerance,
	}
}

// runAssess runs req, writes the requested artifacts and prints a summary to w.
func runAssess(ctx context.Context, w io.Writer, st store.Store, req pipeline.Request, arts artifacts) (*pipeline.Result, error) {
	var opts []pipeline.Option
	if st != nil {
		opts = append(opts, pipeline.WithStore(st))
	}
	coord := pipeline.New(rasterio.FileLoader{}, rasterio.FileEmitter{}, engineOptions(), opts...)

	res, err := coord.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, warn := range res.Warnings {
		zap.L().Warn("assessment warning", zap.Error(warn))
	}

	if err := writeArtifacts(res, req, arts); err != nil {
		return res, err
	}

	summary := report.Summarize(req.Name, res.Combined)
	if err := report.WriteTable(w, summary); err != nil {
		return res, err
	}
	fmt.Fprintln(w)
	if err := report.WriteWeights(w, resultWeights(res), resultCR(res)); err != nil {
		return res, err
	}
	if res.RunID != "" {
		fmt.Fprintf(w, "\nrun %s recorded\n", res.RunID)
	}
	return res, nil
}

func writeArtifacts(res *pipeline.Result, req pipeline.Request, arts artifacts) error {
	if arts.Shapefile != "" {
		n, err := rasterio.WriteShapefile(arts.Shapefile, res.Combined, false)
		if err != nil {
			return err
		}
		zap.L().Info("wrote shapefile", zap.String("path", arts.Shapefile), zap.Int("cells", n))
	}

	if arts.Zones != "" {
		conn := zones.Conn4
		if cfg.Zones.Connectivity == 8 {
			conn = zones.Conn8
		}
		zs, err := zones.Extract(res.Combined, arts.ZoneCategory, zones.Options{Conn: conn, MinCells: cfg.Zones.MinCells})
		if err != nil {
			return err
		}
		if err := zones.WriteGeoJSON(arts.Zones, res.Combined, zs); err != nil {
			return err
		}
		zap.L().Info("wrote zones", zap.String("path", arts.Zones), zap.Int("zones", len(zs)))
	}

	if arts.Report != "" {
		r := report.Report{
			Title:     req.Name,
			Summaries: []report.Summary{report.Summarize("combined", res.Combined)},
			Weights:   resultWeights(res),
			CR:        resultCR(res),
		}
		for _, f := range res.Factors {
			r.Summaries = append(r.Summaries, report.Summarize(f.Name, f.Grid))
		}
		if err := report.WriteXLSX(arts.Report, r); err != nil {
			return err
		}
		zap.L().Info("wrote report", zap.String("path", arts.Report))
	}
	return nil
}

func resultWeights(res *pipeline.Result) []report.Weight {
	out := make([]report.Weight, len(res.Factors))
	for i, f := range res.Factors {
		out[i] = report.Weight{Factor: f.Name, Weight: f.Weight}
	}
	return out
}

func resultCR(res *pipeline.Result) *float64 {
	if res.AHP == nil {
		return nil
	}
	cr := res.AHP.CR
	return &cr
}
