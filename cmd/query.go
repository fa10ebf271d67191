package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"car-sales/models"
	"car-sales/report"
)

var (
	minPrice float64
	maxPrice float64
	category string
	analyze  bool
	chartOut string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List best sellers within a starting-price band",
	Example: `  car-sales query --min 10 --max 30 --category SUV
  car-sales query --min 5 --max 15 --analyze`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Shortlist the top sellers for a budget",
	Args:  cobra.NoArgs,
	RunE:  runRecommend,
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a free-text question over the sales table",
	Example: `  car-sales ask "20万左右的纯电SUV哪款卖得最好"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Write an xlsx workbook with a sales/price combo chart",
	Args:  cobra.NoArgs,
	RunE:  runChart,
}

func init() {
	for _, c := range []*cobra.Command{queryCmd, recommendCmd, chartCmd} {
		c.Flags().Float64Var(&minPrice, "min", 10, "minimum starting price (万)")
		c.Flags().Float64Var(&maxPrice, "max", 30, "maximum starting price (万)")
		c.Flags().StringVar(&category, "category", models.CategoryAny, "category keyword, e.g. SUV, 轿车, MPV")
		rootCmd.AddCommand(c)
	}
	queryCmd.Flags().BoolVar(&analyze, "analyze", false, "ask the model for a market analysis of the result")
	chartCmd.Flags().StringVarP(&chartOut, "output", "o", "", "workbook path (overrides CHART_PATH)")
	rootCmd.AddCommand(askCmd)
}

func printSource(cmd *cobra.Command, res *models.QueryResult) {
	if res.Degraded {
		color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(), "  (served from %s; fallbacks: %s)\n",
			res.Source, strings.Join(res.Fallbacks, ", "))
	}
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.queries.Search(ctx, minPrice, maxPrice, category)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printSource(cmd, res)
	if res.Empty() {
		fmt.Fprintln(out, "No series match these conditions.")
		return nil
	}

	if err := report.WriteTable(out, res.Listings); err != nil {
		return err
	}
	a.insights.Print(out, a.insights.Generate(res.Listings))

	if analyze {
		summary, _ := a.assistant.Analyze(ctx, res.Listings)
		color.New(color.FgCyan, color.Bold).Fprintln(out, "  Market analysis")
		fmt.Fprintln(out, summary)
	}
	return nil
}

func runRecommend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.queries.Recommend(ctx, minPrice, maxPrice, category)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printSource(cmd, rec.Result)
	if rec.Result.Empty() {
		fmt.Fprintln(out, "No series match this budget.")
		return nil
	}
	if err := report.WriteTable(out, rec.Result.Listings); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintln(out, rec.Tip)
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ans, err := a.assistant.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "SQL: %s\n\n", ans.Expression)
	printSource(cmd, ans.Result)
	if !ans.Result.Empty() {
		if err := report.WriteTable(out, ans.Result.Listings); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, ans.Summary)
	return nil
}

func runChart(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.queries.Search(ctx, minPrice, maxPrice, category)
	if err != nil {
		return err
	}
	if res.Empty() {
		return fmt.Errorf("no series match these conditions, nothing to chart")
	}

	path := cfg.ChartPath
	if chartOut != "" {
		path = chartOut
	}
	if err := report.SaveChart(path, res.Listings); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Chart of %d series written to %s\n", len(res.Listings), path)
	return nil
}
