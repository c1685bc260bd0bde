package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vietddude/gqlclient/internal/infra/graphql"
)

// requestFlags holds the flags shared by query and mutate.
type requestFlags struct {
	document      string
	file          string
	vars          string
	operationName string
	txID          string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.document, "query", "q", "", "GraphQL document")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "read the GraphQL document from a file (- for stdin)")
	cmd.Flags().StringVar(&f.vars, "vars", "", "variables as a JSON object")
	cmd.Flags().StringVar(&f.operationName, "operation-name", "", "operation to run when the document has several")
	cmd.Flags().StringVar(&f.txID, "tx-id", "", "transaction id sent as x-transaction-id (random when empty)")
}

func (f *requestFlags) request(stdin io.Reader) (graphql.Request, error) {
	req := graphql.Request{Query: f.document, OperationName: f.operationName}

	switch {
	case f.document != "" && f.file != "":
		return req, errors.New("--query and --file are mutually exclusive")
	case f.file == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return req, fmt.Errorf("read stdin: %w", err)
		}
		req.Query = string(data)
	case f.file != "":
		data, err := os.ReadFile(f.file)
		if err != nil {
			return req, fmt.Errorf("read document: %w", err)
		}
		req.Query = string(data)
	}

	if f.vars != "" {
		if err := gojson.Unmarshal([]byte(f.vars), &req.Variables); err != nil {
			return req, fmt.Errorf("parse --vars: %w", err)
		}
	}
	return req, nil
}

var (
	queryFlags  requestFlags
	mutateFlags requestFlags
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a GraphQL query and print its data",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRequest(cmd, &queryFlags, (*graphql.Client).Query)
	},
}

var mutateCmd = &cobra.Command{
	Use:   "mutate",
	Short: "Run a GraphQL mutation and print its data",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRequest(cmd, &mutateFlags, (*graphql.Client).Mutate)
	},
}

func init() {
	queryFlags.register(queryCmd)
	mutateFlags.register(mutateCmd)
	rootCmd.AddCommand(queryCmd, mutateCmd)
}

type requestFunc func(c *graphql.Client, ctx context.Context, req graphql.Request, txID string) (json.RawMessage, error)

func runRequest(cmd *cobra.Command, flags *requestFlags, do requestFunc) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	req, err := flags.request(cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, _ := newClient(cfg)
	data, err := do(client, ctx, req, flags.txID)
	if err != nil {
		if kind, ok := graphql.KindOf(err); ok {
			slog.Error("Request failed", "kind", kind.String(), "error", err)
		} else {
			slog.Error("Request failed", "error", err)
		}
		return err
	}

	var out bytes.Buffer
	if len(data) == 0 {
		out.WriteString("null")
	} else if err := gojson.Indent(&out, data, "", "  "); err != nil {
		return fmt.Errorf("format data: %w", err)
	}
	out.WriteByte('\n')

	_, err = cmd.OutOrStdout().Write(out.Bytes())
	return err
}
