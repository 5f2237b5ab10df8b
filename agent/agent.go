package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"google.golang.org/genai"
)

// Agent runs the assist session: a facilitator chat routing the user's
// questions to the experts it was given.
type Agent struct {
	out         io.Writer
	in          *bufio.Reader
	facilitator *Expert
	experts     []*Expert
}

// New wires an agent over the session's output and input streams. The
// facilitator is built from the experts and owns the conversation.
func New(out io.Writer, in io.Reader, experts ...*Expert) *Agent {
	return &Agent{
		out:         out,
		in:          bufio.NewReader(in),
		experts:     experts,
		facilitator: newFacilitator(experts...),
	}
}

// Start opens every chat. Run calls it lazily so callers that only want
// the default flow never need to.
func (a *Agent) Start(ctx context.Context, client *genai.Client) error {
	for _, e := range append(a.experts, a.facilitator) {
		if err := e.Start(ctx, client); err != nil {
			return err
		}
	}
	return nil
}

// Run loops reading questions and printing the facilitator's answers.
// Initial prompts are consumed before reading from the input stream, so a
// question can be passed straight from the command line. The session ends
// on "bye" or EOF.
func (a *Agent) Run(ctx context.Context, client *genai.Client, initial ...string) error {
	if a.facilitator.chat == nil {
		if err := a.Start(ctx, client); err != nil {
			return err
		}
	}

	fmt.Fprintln(a.out, "Welcome to pnlt assist. Type 'bye' to exit.")
	for {
		fmt.Fprint(a.out, "assist> ")

		var question string
		var err error
		if len(initial) > 0 {
			question, initial = initial[0], initial[1:]
			fmt.Fprintln(a.out, question)
		} else if question, err = a.in.ReadString('\n'); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		question = strings.TrimSpace(question)
		if question == "" {
			continue
		}
		if question == "bye" {
			return nil
		}

		answer, err := a.facilitator.Ask(ctx, &genai.Part{Text: question})
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, answer.Parts[0].Text)
	}
}
