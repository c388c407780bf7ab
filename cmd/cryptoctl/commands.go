package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Aidin1998/cryptoapi/internal/bootstrap"
	"github.com/Aidin1998/cryptoapi/internal/config"
	"github.com/Aidin1998/cryptoapi/internal/crypto"
	"github.com/Aidin1998/cryptoapi/pkg/logger"
	"github.com/Aidin1998/cryptoapi/pkg/models"
	"github.com/Aidin1998/cryptoapi/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cryptoctl",
		Short:         "Maintenance commands for the crypto API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSeedCmd(), newExportCmd())
	return root
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Replace every record in the database with the built-in data set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			zapLogger, err := logger.NewLogger(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer zapLogger.Sync()

			result, err := seed(cmd.Context(), cfg, zapLogger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d, inserted %d\n", result.Deleted, result.Inserted)
			return nil
		},
	}
}

func seed(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) (*models.ResetResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	repo, err := bootstrap.OpenRepository(ctx, cfg, zapLogger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := repo.Close(context.Background()); err != nil {
			zapLogger.Error("Failed to disconnect", zap.Error(err))
		}
	}()

	svc := crypto.NewService(repo, nil, validation.NewValidator(zapLogger), zapLogger)
	result, err := svc.Reset(ctx)
	if err != nil {
		return nil, fmt.Errorf("seeding failed: %w", err)
	}
	return result, nil
}

func newExportCmd() *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Convert a JSON array of records to CSV",
		Long: "Reads a JSON array of records, as returned by the API, and writes it as CSV.\n" +
			"Input defaults to stdin and output to stdout.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var r io.Reader = cmd.InOrStdin()
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			if output != "" && output != "-" {
				return writeFile(output, func(w io.Writer) error {
					return exportCSV(r, w)
				})
			}
			return exportCSV(r, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON file to read (default stdin)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "CSV file to write (default stdout)")
	return cmd
}

// writeFile creates path and runs write against it. A failure to close the
// file is returned when write itself succeeded.
func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	return write(f)
}

func exportCSV(r io.Reader, w io.Writer) error {
	records, err := crypto.ReadJSON(r)
	if err != nil {
		return err
	}
	return crypto.WriteCSV(w, records)
}
