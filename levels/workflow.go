package levels

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/skosovsky/agentcore"
	"github.com/skosovsky/agentcore/agent"
	"github.com/skosovsky/agentcore/llm"
)

const workflowSystemPrompt = "You are a data analysis AI agent. Your task is to produce a comprehensive report " +
	"on quarterly sales performance. The available tools are:\n" +
	"  - load_data: Loads the raw sales data (provided as a CSV string).\n" +
	"  - clean_data: Cleans and formats the data for analysis.\n" +
	"  - analyze_data: Computes key metrics (e.g., total and average sales).\n" +
	"  - finalize_report: Generates a final report with insights.\n\n" +
	"Based on the customer's query, decide dynamically which steps to perform and in what order. " +
	"You might not need every tool for every query. Your final output should be a detailed, actionable report."

const (
	monthlySales = "month,sales\n" +
		"January,5000\nFebruary,5200\nMarch,4800\nApril,5100\nMay,5300\nJune,5000\n" +
		"July,5500\nAugust,5400\nSeptember,5200\nOctober,5300\nNovember,5600\nDecember,5800"
	quarterlySales = "quarter,sales\nQ1,12000\nQ2,15000\nQ3,17000\nQ4,20000"
)

const (
	loadedPrefix   = "Loaded Data:\n"
	cleanedPrefix  = "Cleaned Data:\n"
	analysisPrefix = "Analysis Results:\n"
)

type loadArgs struct {
	Query string `json:"query" description:"The customer's request; mention monthly or quarterly to pick the data set"`
}

type dataArgs struct {
	Data string `json:"data" description:"Output of the previous step"`
}

type reportArgs struct {
	Analysis string `json:"analysis" description:"Output of analyze_data"`
}

// LoadData returns the monthly sales CSV when query mentions "monthly" and the
// quarterly one otherwise.
func LoadData(query string) string {
	if strings.Contains(strings.ToLower(query), "monthly") {
		return loadedPrefix + monthlySales
	}
	return loadedPrefix + quarterlySales
}

// CleanData parses CSV (optionally prefixed by LoadData's header) into
// "key: value" pairs joined by ", ".
func CleanData(data string) string {
	data = strings.TrimPrefix(data, loadedPrefix)
	records, err := csv.NewReader(strings.NewReader(data)).ReadAll()
	if err != nil || len(records) == 0 || len(records[0]) < 2 {
		return cleanedPrefix + "No data found"
	}
	pairs := make([]string, 0, len(records)-1)
	for _, row := range records[1:] {
		pairs = append(pairs, row[0]+": "+row[1])
	}
	return cleanedPrefix + strings.Join(pairs, ", ")
}

// AnalyzeData totals and averages the integer values of CleanData's output.
// Parts that do not parse are skipped.
func AnalyzeData(data string) string {
	data = strings.TrimPrefix(data, cleanedPrefix)
	var total, count int
	for part := range strings.SplitSeq(data, ", ") {
		_, value, ok := strings.Cut(part, ": ")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			continue
		}
		total += n
		count++
	}
	var avg float64
	if count > 0 {
		avg = float64(total) / float64(count)
	}
	return fmt.Sprintf("%sTotal Sales = $%d, Average Sales = $%s",
		analysisPrefix, total, strconv.FormatFloat(avg, 'f', -1, 64))
}

// FinalizeReport wraps analysis into the report text.
func FinalizeReport(analysis string) string {
	return "Final Report: Sales Performance\n\n" +
		"Based on the analysis, here are the key insights:\n" +
		analysis + "\n\n" +
		"This comprehensive report supports strategic decision-making for future sales initiatives."
}

// WorkflowTools returns the four data analysis tools.
func WorkflowTools() ([]agentcore.Tool, error) {
	load, err := agentcore.NewTool("load_data",
		"Load raw sales data based on the query: monthly data if the query mentions 'monthly', quarterly otherwise.",
		func(_ context.Context, a loadArgs) (string, error) { return LoadData(a.Query), nil })
	if err != nil {
		return nil, err
	}
	clean, err := agentcore.NewTool("clean_data",
		"Clean the CSV data by parsing it and reformatting into a concise string.",
		func(_ context.Context, a dataArgs) (string, error) { return CleanData(a.Data), nil })
	if err != nil {
		return nil, err
	}
	analyze, err := agentcore.NewTool("analyze_data",
		"Analyze the cleaned data by computing total and average sales.",
		func(_ context.Context, a dataArgs) (string, error) { return AnalyzeData(a.Data), nil })
	if err != nil {
		return nil, err
	}
	finalize, err := agentcore.NewTool("finalize_report",
		"Generate the final report from the analysis.",
		func(_ context.Context, a reportArgs) (string, error) { return FinalizeReport(a.Analysis), nil })
	if err != nil {
		return nil, err
	}
	return []agentcore.Tool{load, clean, analyze, finalize}, nil
}

// NewWorkflowAgent registers the data analysis tools in reg and returns a
// planner that chains them. opts follow the workflow system prompt, so callers
// may override it.
func NewWorkflowAgent(model llm.Completer, reg *agentcore.Registry, opts ...agent.Option) (*agent.Agent, error) {
	tools, err := WorkflowTools()
	if err != nil {
		return nil, err
	}
	if err := registerAll(reg, tools...); err != nil {
		return nil, err
	}
	return agent.New(model, reg, append([]agent.Option{agent.WithSystemPrompt(workflowSystemPrompt)}, opts...)...)
}
