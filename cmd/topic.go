package cmd

import (
	"context"
	"flag"
	"strings"

	"github.com/google/subcommands"
	"github.com/rferrand/pnl/docs"
)

// topicCmd displays a documentation topic.
type topicCmd struct{}

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "display a documentation topic" }
func (*topicCmd) Usage() string {
	return `pnlt topic [<name>...]

  Displays the named documentation topics, or the list of topics when called
  without argument. 'pnlt topic "*"' displays everything.
`
}

func (*topicCmd) SetFlags(_ *flag.FlagSet) {}

func (c *topicCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	topics := f.Args()
	if len(topics) == 0 {
		topics = []string{"readme"}
	}
	md, err := docs.GetTopics(topics...)
	if err != nil {
		return fail(err)
	}
	printMarkdown(strings.TrimSpace(md) + "\n")
	return subcommands.ExitSuccess
}
