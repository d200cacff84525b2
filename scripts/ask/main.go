// ask posts a question to a running insight-engine and renders the outcome
// in the terminal: the answer paragraph, the SQL that produced it, the
// result rows as a table, and the rule-based insights.
//
// Usage: go run ./scripts/ask [-engine http://localhost:8080] <dataset-id> "<question>"
//
// Authentication: reads a bearer token from ENGINE_TOKEN. With
// AUTH_ENABLE_VERIFICATION=false on the engine, any non-empty token works.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/insightloop/insight-engine/pkg/models"
)

const maxDisplayRows = 50

func main() {
	engineURL := flag.String("engine", "http://localhost:8080", "Base URL of the running engine")
	timeout := flag.Duration("timeout", 2*time.Minute, "Request timeout")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-engine url] <dataset-id> \"<question>\"\n", os.Args[0])
		os.Exit(1)
	}
	datasetID, question := args[0], args[1]

	resp, err := ask(*engineURL, *timeout, datasetID, question)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	render(resp)
	if !resp.Success {
		os.Exit(1)
	}
}

func ask(engineURL string, timeout time.Duration, datasetID, question string) (*models.QuestionResponse, error) {
	body, err := json.Marshal(models.QuestionRequest{Question: question})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/datasets/%s/questions", engineURL, datasetID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := os.Getenv("ENGINE_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: timeout}
	httpResp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode != http.StatusOK {
		var errBody struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(httpResp.Body).Decode(&errBody); err == nil && errBody.Message != "" {
			return nil, fmt.Errorf("engine returned %d: %s", httpResp.StatusCode, errBody.Message)
		}
		return nil, fmt.Errorf("engine returned %d", httpResp.StatusCode)
	}

	var resp models.QuestionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

func render(resp *models.QuestionResponse) {
	if !resp.Success {
		fmt.Printf("Failed: %s\n", resp.Error)
		return
	}

	fmt.Println(resp.Answer)
	fmt.Println()
	if resp.SQL != "" {
		fmt.Printf("SQL: %s\n\n", resp.SQL)
	}

	if resp.Results != nil && len(resp.Results.Rows) > 0 {
		fmt.Println(renderTable(resp.Results))
		if resp.Results.Truncated {
			fmt.Println("(result truncated at the row cap)")
		}
		fmt.Println()
	}

	if resp.Visualization != nil {
		fmt.Printf("Suggested chart: %s\n", resp.Visualization.Type)
	}
	for _, insight := range resp.Insights {
		fmt.Printf("  - %s\n", insight)
	}
}

func renderTable(result *models.ExecutionResult) string {
	t := table.NewWriter()

	header := make(table.Row, 0, len(result.Columns))
	for _, col := range result.Columns {
		header = append(header, col)
	}
	t.AppendHeader(header)

	shown := len(result.Rows)
	if shown > maxDisplayRows {
		shown = maxDisplayRows
	}
	for _, row := range result.Rows[:shown] {
		cells := make(table.Row, 0, len(row))
		for _, v := range row {
			cells = append(cells, v.String())
		}
		t.AppendRows([]table.Row{cells})
	}
	if shown < len(result.Rows) {
		t.AppendFooter(table.Row{fmt.Sprintf("%d of %d rows", shown, len(result.Rows))})
	}

	t.SetStyle(table.StyleDefault)
	return t.RenderMarkdown()
}
