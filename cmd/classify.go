package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/floodrisk/internal/classify"
	"github.com/sells-group/floodrisk/internal/rasterio"
	"github.com/sells-group/floodrisk/internal/report"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify one factor grid into risk categories",
	Example: `  floodrisk classify --input slope.asc --kind slope --low 30 --high 50 --output slope_risk.asc
  floodrisk classify --input prox.asc --kind proximity --output prox_risk.shp`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		kindName, _ := cmd.Flags().GetString("kind")

		spec, err := specFromFlags(cmd, kindName)
		if err != nil {
			return err
		}

		g, err := rasterio.ReadASCIIFile(input)
		if err != nil {
			return err
		}
		res, err := classify.Classifier{Workers: cfg.Engine.Workers}.Classify(g, spec)
		if err != nil {
			return err
		}
		if res.Warning != nil {
			zap.L().Warn(res.Warning.Error())
		}

		if output != "" {
			if err := (rasterio.FileEmitter{}).Emit(cmd.Context(), res.Grid, output); err != nil {
				return err
			}
		}
		return report.WriteTable(os.Stdout, report.Summarize(string(spec.Kind), res.Grid))
	},
}

func init() {
	f := classifyCmd.Flags()
	f.String("input", "", "ESRI ASCII grid to classify (required)")
	f.String("kind", "", "factor kind: elevation, slope, rainfall or proximity (required)")
	f.String("output", "", "write the classified grid here (.asc or .shp)")
	addSpecFlags(classifyCmd)
	_ = classifyCmd.MarkFlagRequired("input")
	_ = classifyCmd.MarkFlagRequired("kind")
	rootCmd.AddCommand(classifyCmd)
}

// addSpecFlags registers threshold and rule overrides for one factor.
func addSpecFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64("low", 0, "low threshold (default from config)")
	f.Float64("high", 0, "high threshold (default from config)")
	f.String("direction", "", "increasing or decreasing (default by kind)")
	f.Bool("normalize", false, "rescale to [0,1] when values leave that range")
	f.Bool("clamp-negative", false, "treat negative values as 0")
}

// specFromFlags builds a FactorSpec from the kind defaults, the configured
// thresholds and any explicitly set flags.
func specFromFlags(cmd *cobra.Command, kindName string) (classify.FactorSpec, error) {
	kind, err := classify.ParseKind(kindName)
	if err != nil {
		return classify.FactorSpec{}, err
	}
	th, _ := cfg.Thresholds.For(string(kind))
	f := cmd.Flags()
	if f.Changed("low") {
		th.Low, _ = f.GetFloat64("low")
	}
	if f.Changed("high") {
		th.High, _ = f.GetFloat64("high")
	}

	spec := classify.DefaultSpec(kind, th.Low, th.High)
	if f.Changed("direction") {
		d, _ := f.GetString("direction")
		if spec.Direction, err = classify.ParseDirection(d); err != nil {
			return classify.FactorSpec{}, err
		}
	}
	if f.Changed("normalize") {
		spec.Normalize, _ = f.GetBool("normalize")
	}
	if f.Changed("clamp-negative") {
		spec.ClampNegative, _ = f.GetBool("clamp-negative")
		if spec.ClampNegative {
			spec.NegativeIsNoData = false
		}
	}
	if err := spec.Validate(); err != nil {
		return classify.FactorSpec{}, eris.Wrap(err, "classify flags")
	}
	return spec, nil
}
