// Package main is nnrgctl, an offline console for the assistant's rule
// pipeline and knowledge data.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/assistant"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/config"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/knowledge"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/logger"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/resolver"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli holds state shared by the subcommands.
type cli struct {
	file     string
	logLevel string
	cfg      *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "nnrgctl",
		Short:         "Query the NNRG assistant offline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadForMode(config.OfflineMode)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if c.file != "" {
				cfg.KnowledgeFile = c.file
			}
			c.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.file, "file", "f", "", "Knowledge YAML file (default: NNRG_KNOWLEDGE_FILE or embedded data)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "error", "Log level for diagnostics on stderr")

	root.AddCommand(
		newAskCmd(c),
		newChatCmd(c),
		newStagesCmd(c),
		newPublishCmd(c),
	)
	return root
}

func (c *cli) logger(stderr io.Writer) *logger.Logger {
	return logger.NewWithWriter(c.logLevel, stderr)
}

// knowledge loads the store from the configured file or the embedded data.
// Network sources are never consulted.
func (c *cli) knowledge() (*assistant.Knowledge, error) {
	storeOpts := []knowledge.Option{knowledge.WithLocation(c.cfg.Location())}
	resolverOpts := []resolver.Option{resolver.WithMemoryThreshold(c.cfg.MemoryThreshold)}

	if c.cfg.KnowledgeFile == "" {
		store, err := knowledge.Default(storeOpts...)
		if err != nil {
			return nil, err
		}
		return assistant.NewKnowledge(store, resolverOpts...), nil
	}
	store, err := knowledge.LoadFile(c.cfg.KnowledgeFile, storeOpts...)
	if err != nil {
		return nil, err
	}
	k := assistant.NewKnowledge(store, resolverOpts...)
	k.Replace(store, assistant.SourceFile)
	return k, nil
}

// assistant builds an assistant whose only external responder is the
// site keyword table.
func (c *cli) assistant(stderr io.Writer) (*assistant.Assistant, error) {
	k, err := c.knowledge()
	if err != nil {
		return nil, err
	}
	return assistant.New(k, assistant.BuildChain(k, assistant.ChainConfig{}), assistant.Options{
		TurnTimeout: c.cfg.TurnTimeout,
		Logger:      c.logger(stderr),
	}), nil
}
