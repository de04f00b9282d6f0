package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nnrg-cse/nnrg-assistant-go/internal/knowledge"
	"github.com/nnrg-cse/nnrg-assistant-go/internal/r2client"
)

func newPublishCmd(c *cli) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "publish <file>",
		Short: "Validate a knowledge file and upload it to the bucket",
		Long: `Validate a knowledge file and upload it under the knowledge object key.
Running servers pick it up on their next reload. Keys ending in .zst are
stored zstd-compressed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			if key == "" {
				key = cfg.KnowledgeObjectKey
			}
			if key == "" {
				return errors.New("no object key: set --key or NNRG_KNOWLEDGE_OBJECT_KEY")
			}
			if !cfg.R2Enabled() {
				return errors.New("R2 credentials are not configured")
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if _, err := knowledge.LoadFile(args[0]); err != nil {
				return fmt.Errorf("refusing to publish invalid knowledge: %w", err)
			}

			endpoint := cfg.R2Endpoint
			if endpoint == "" {
				endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
			}
			client, err := r2client.New(cmd.Context(), r2client.Config{
				Endpoint:    endpoint,
				AccessKeyID: cfg.R2AccessKeyID,
				SecretKey:   cfg.R2SecretAccessKey,
				BucketName:  cfg.R2BucketName,
			})
			if err != nil {
				return err
			}
			etag, err := client.Publish(cmd.Context(), key, data, "application/yaml")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "published %s (etag %s)\n", key, etag)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Object key (default: NNRG_KNOWLEDGE_OBJECT_KEY)")
	return cmd
}
