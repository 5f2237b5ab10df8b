package agent

import (
	"context"
	"fmt"

	"github.com/rferrand/pnl"
	"github.com/rferrand/pnl/renderer"
	"google.golang.org/genai"
)

const model = "gemini-2.5-pro"

// Files tells the Analyst's tools where the persisted data lives. The CLI
// fills it in before starting a session.
var Files = struct {
	Ledger    string
	Splits    string
	PricesDir string
}{
	Ledger:    "transactions.jsonl",
	Splits:    "splits.jsonl",
	PricesDir: "prices",
}

// creates the facilitator
func newFacilitator(experts ...*Expert) *Expert {
	return &Expert{
		Name:      "Facilitator",
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: Declarations(experts)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			As a facilitator you are in charge of the conversation and solving the user's request.

			Learn about the expert's skill that you can get from the Tools to ask them questions.
			They are at your service and 100% dedicated to you, they keep context of your previous questions.

			The user is here primarily to understand his trading results: his open positions,
			his realized and unrealized PnL, and the health of his price data.

			Devise a plan of questions to ask each expert and come up with the best response
			to the user's request. The user will assume that you know about his symbols,
			check the holdings first to understand what they are.
		`}}},
		},
		Tools: NewToolbox(experts),
	}
}

// NewMarkets returns the expert grounding answers in live market news.
func NewMarkets() *Expert {
	return &Expert{
		Name: "Markets",
		Description: `This is an expert of the markets,
		very well aware of listed companies, venues and instruments,
		and of the latest news about them.
		Ask Markets whenever you need recent or grounding information.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You are an expert of financial markets, you can search and find about anything related to
			listed companies, venues, instruments and market events. You leverage Google Search to
			ground your assertions in a solid truth.
			You can get the latest news too, and you know how to relate them to the user's request.
				`}}},
		},
	}
}

// NewAnalyst returns the expert that reads the user's trading data.
func NewAnalyst() *Expert {

	lib := []Tool{Holdings, Daily, Gaps}

	return &Expert{
		Name: "Analyst",
		Description: `This is the Analyst. He is in charge of reading the user's trade history.
		He can compute the open positions, decompose any day's PnL and report
		on the health of the closing-price data.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: Declarations(lib)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
				You are an analyst in charge of the user's trade history.
				You know how to use the Tools to extract relevant figures.
				You are part of a team of experts, yours is everything about the user's
				positions and PnL. Pardon their approximative language and figure out what they meant.

				Use the available tools to get information about
				  - open positions and lifetime results
				  - a given day's realized and unrealized PnL
				  - missing closing prices
			`}}},
		},
		Tools: NewToolbox(lib),
	}
}

// Func is a Tool built from a declaration and a closure.
type Func struct {
	Decl *genai.FunctionDeclaration
	Func func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse
}

func (f *Func) Declaration() *genai.FunctionDeclaration { return f.Decl }
func (f *Func) Call(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
	return f.Func(ctx, id, args)
}

func failure(id, name string, err error) *genai.FunctionResponse {
	return &genai.FunctionResponse{
		ID:   id,
		Name: name,
		Response: map[string]any{
			"error": err.Error(),
		},
	}
}

func success(id, name, output string) *genai.FunctionResponse {
	return &genai.FunctionResponse{
		ID:   id,
		Name: name,
		Response: map[string]any{
			"output": output,
		},
	}
}

var dateParameter = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"date": {
			Type:        genai.TypeString,
			Description: "The day to compute, in YYYY-MM-DD format. Today is the default.",
		},
	},
}

var Holdings = &Func{
	Decl: &genai.FunctionDeclaration{
		Name: "Holdings",
		Description: `Holdings lists the user's open positions on the given day:
		symbol, side, net quantity, cost per unit and realized PnL, plus the
		lifetime realized total with win and loss counts.`,
		Parameters: dateParameter,
		Response: &genai.Schema{
			Type:        genai.TypeString,
			Description: "A markdown-formatted table of the open positions.",
		},
	},
	Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
		on, err := parseDate(args)
		if err != nil {
			return failure(id, "Holdings", err)
		}
		txs, splits, err := loadHistory()
		if err != nil {
			return failure(id, "Holdings", err)
		}
		book := pnl.RebuildThrough(txs, splits, nil, on)
		return success(id, "Holdings", renderer.HoldingsMarkdown(book))
	},
}

var Daily = &Func{
	Decl: &genai.FunctionDeclaration{
		Name: "Daily",
		Description: `Daily decomposes one trading day's PnL into its realized and
		unrealized legs. A missing_data status means some closing prices are
		absent and the listed symbols are excluded from the total.`,
		Parameters: dateParameter,
		Response: &genai.Schema{
			Type:        genai.TypeString,
			Description: "A markdown-formatted PnL decomposition for the day.",
		},
	},
	Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
		on, err := parseDate(args)
		if err != nil {
			return failure(id, "Daily", err)
		}
		txs, splits, err := loadHistory()
		if err != nil {
			return failure(id, "Daily", err)
		}
		store, err := pnl.LoadPrices(Files.PricesDir)
		if err != nil {
			return failure(id, "Daily", err)
		}
		report := pnl.NewAttributionEngine(txs, splits, store).Day(on)
		return success(id, "Daily", renderer.DailyMarkdown(report))
	},
}

var Gaps = &Func{
	Decl: &genai.FunctionDeclaration{
		Name: "Gaps",
		Description: `Gaps reports the trading days whose closing prices are still
		missing, grouped by day. These are the figures the auto-heal loop will
		backfill next.`,
		Parameters: &genai.Schema{Type: genai.TypeObject},
		Response: &genai.Schema{
			Type:        genai.TypeString,
			Description: "A markdown-formatted worklist of missing prices.",
		},
	},
	Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
		txs, splits, err := loadHistory()
		if err != nil {
			return failure(id, "Gaps", err)
		}
		store, err := pnl.LoadPrices(Files.PricesDir)
		if err != nil {
			return failure(id, "Gaps", err)
		}
		tasks := pnl.DetectGaps(txs, splits, store, pnl.Date{}, pnl.Today())
		return success(id, "Gaps", renderer.GapsMarkdown(tasks))
	},
}

func loadHistory() ([]pnl.Transaction, *pnl.SplitTable, error) {
	txs, err := pnl.ReadTransactions(Files.Ledger)
	if err != nil {
		return nil, nil, fmt.Errorf("could not load the trade history: %w", err)
	}
	splits, err := pnl.ReadSplits(Files.Splits)
	if err != nil {
		return nil, nil, fmt.Errorf("could not load the split table: %w", err)
	}
	return txs, splits, nil
}

func parseDate(args map[string]any) (pnl.Date, error) {
	idate, hasDate := args["date"]
	if !hasDate {
		return pnl.Today(), nil
	}
	sdate, ok := idate.(string)
	if !ok {
		return pnl.Today(), fmt.Errorf("argument 'date' is not a string as expected but %T", idate)
	}

	date, err := pnl.ParseDate(sdate)
	if err != nil {
		return pnl.Today(), fmt.Errorf("argument 'date' must be a valid YYYY-MM-DD date, got %q", sdate)
	}

	return date, nil
}
