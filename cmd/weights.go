package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/floodrisk/internal/ahp"
	"github.com/sells-group/floodrisk/internal/classify"
	"github.com/sells-group/floodrisk/internal/config"
	"github.com/sells-group/floodrisk/internal/pipeline"
	"github.com/sells-group/floodrisk/internal/report"
)

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Derive factor weights from a pairwise comparison matrix",
	Long: "Solves a pairwise comparison matrix with AHP and prints the priority vector and consistency ratio.\n" +
		"Give the full matrix with --matrix (rows separated by ';', fractions allowed) or the upper triangle with --judgments.",
	Example: `  floodrisk weights --matrix "1,3,5;1/3,1,2;1/5,1/2,1"
  floodrisk weights --judgments "3,5,7,2,4,2" --names elevation,slope,rainfall,proximity`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		matrix, _ := cmd.Flags().GetString("matrix")
		judgments, _ := cmd.Flags().GetString("judgments")
		names, _ := cmd.Flags().GetStringSlice("names")
		method, _ := cmd.Flags().GetString("method")
		allow, _ := cmd.Flags().GetBool("allow-inconsistent")
		asJSON, _ := cmd.Flags().GetBool("json")

		if method == "" {
			method = cfg.Engine.Method
		}
		m, err := buildMatrix(matrix, judgments, len(names))
		if err != nil {
			return err
		}
		res, err := solveMatrix(m, method, cfg.Engine)
		if err != nil {
			return err
		}
		names = factorNames(names, len(m))

		if asJSON {
			err = writeWeightsJSON(os.Stdout, names, res, cfg.Engine.ConsistencyLimit)
		} else {
			err = writeWeightsTable(os.Stdout, names, res, cfg.Engine.ConsistencyLimit)
		}
		if err != nil {
			return err
		}

		if !res.Consistent(cfg.Engine.ConsistencyLimit) && !allow {
			return &pipeline.ConsistencyWarning{CR: res.CR, Limit: cfg.Engine.ConsistencyLimit, Weights: res.Weights}
		}
		return nil
	},
}

func init() {
	weightsCmd.Flags().String("matrix", "", "full comparison matrix, e.g. \"1,3;1/3,1\"")
	weightsCmd.Flags().String("judgments", "", "upper-triangle judgments in row order, e.g. \"3,5,2\"")
	weightsCmd.Flags().StringSlice("names", nil, "criterion names in matrix order")
	weightsCmd.Flags().String("method", "", "eigen or column-mean (default from config)")
	weightsCmd.Flags().Bool("allow-inconsistent", false, "exit zero even when CR exceeds the limit")
	weightsCmd.Flags().Bool("json", false, "print JSON instead of a table")
	weightsCmd.MarkFlagsMutuallyExclusive("matrix", "judgments")
	weightsCmd.MarkFlagsOneRequired("matrix", "judgments")
	rootCmd.AddCommand(weightsCmd)
}

// buildMatrix parses either a full matrix or an upper-triangle judgment list.
// n is the criterion count for judgments; zero infers it from the list length.
func buildMatrix(matrix, judgments string, n int) ([][]float64, error) {
	if matrix != "" {
		return ahp.ParseMatrix(matrix)
	}
	if judgments == "" {
		return nil, eris.New("a --matrix or --judgments is required")
	}
	var vals []float64
	for _, f := range strings.Split(judgments, ",") {
		v, err := ahp.ParseJudgment(f)
		if err != nil {
			return nil, eris.Wrap(err, "parse judgments")
		}
		vals = append(vals, v)
	}
	if n == 0 {
		n = criteriaForJudgments(len(vals))
	}
	return ahp.Complete(n, vals)
}

// solveMatrix validates m, applies the strict reciprocal check when the
// engine asks for it, and solves.
func solveMatrix(m [][]float64, method string, engine config.EngineConfig) (*ahp.Result, error) {
	if err := ahp.Validate(m); err != nil {
		return nil, err
	}
	if engine.StrictReciprocal {
		if err := ahp.CheckReciprocal(m, engine.ReciprocalTolerance); err != nil {
			return nil, err
		}
	}
	return ahp.Solve(m, ahp.Method(method))
}

// criteriaForJudgments solves k = n(n-1)/2 for n, or returns 0.
func criteriaForJudgments(k int) int {
	for n := 2; n*(n-1)/2 <= k; n++ {
		if n*(n-1)/2 == k {
			return n
		}
	}
	return 0
}

// factorNames pads or generates names for n criteria. Four unnamed criteria
// take the built-in factor order.
func factorNames(names []string, n int) []string {
	if len(names) == n {
		return names
	}
	out := make([]string, n)
	for i := range out {
		switch {
		case i < len(names):
			out[i] = names[i]
		case n == len(classify.Kinds) && len(names) == 0:
			out[i] = string(classify.Kinds[i])
		default:
			out[i] = fmt.Sprintf("c%d", i+1)
		}
	}
	return out
}

func writeWeightsTable(w io.Writer, names []string, res *ahp.Result, limit float64) error {
	weights := make([]report.Weight, len(res.Weights))
	for i, v := range res.Weights {
		weights[i] = report.Weight{Factor: names[i], Weight: v}
	}
	cr := res.CR
	if err := report.WriteWeights(w, weights, &cr); err != nil {
		return err
	}
	verdict := "consistent"
	if !res.Consistent(limit) {
		verdict = "INCONSISTENT"
	}
	_, err := fmt.Fprintf(w, "method=%s lambda_max=%.4f ci=%.4f ri=%.2f (%s, limit %.2f)\n",
		res.Method, res.LambdaMax, res.CI, res.RI, verdict, limit)
	return err
}

func writeWeightsJSON(w io.Writer, names []string, res *ahp.Result, limit float64) error {
	out := struct {
		Names      []string `json:"names"`
		Consistent bool     `json:"consistent"`
		*ahp.Result
	}{names, res.Consistent(limit), res}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
