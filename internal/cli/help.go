package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// visitCommands calls fn for cmd and every command below it, parents first.
func visitCommands(cmd *cobra.Command, fn func(*cobra.Command)) {
	fn(cmd)
	for _, sub := range cmd.Commands() {
		visitCommands(sub, fn)
	}
}

// listSubcommands appends the subcommands of every parent below root to the
// parent's Long text, so "btclink ledger --help" names them under the
// description as well as in cobra's usage block.
func listSubcommands(root *cobra.Command) {
	visitCommands(root, func(cmd *cobra.Command) {
		if cmd != root {
			appendSubcommandList(cmd)
		}
	})
}

func appendSubcommandList(parent *cobra.Command) {
	var subs []*cobra.Command
	width := 0
	for _, sub := range parent.Commands() {
		if sub.IsAvailableCommand() {
			subs = append(subs, sub)
			width = max(width, len(sub.Name()))
		}
	}
	if len(subs) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(parent.Long, "\n"))
	sb.WriteString("\n\nSubcommands:\n")
	for _, sub := range subs {
		fmt.Fprintf(&sb, "  %-*s  %s\n", width, sub.Name(), sub.Short)
	}
	parent.Long = sb.String()
}
