package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"order-tracking-service/internal/config"
	"order-tracking-service/internal/model"
	"order-tracking-service/internal/repository"
	"order-tracking-service/internal/status"
)

type statusStore interface {
	FindAllStatuses(ctx context.Context) ([]model.StatusRecord, error)
	ReplaceStatuses(ctx context.Context, records []model.StatusRecord) error
}

var (
	force  bool
	dryRun bool
)

var rootCmd = &cobra.Command{
	Use:   "seedstatuses",
	Short: "Escribe el vocabulario de estados en la colección statuses",
	Long: `Carga los códigos de producto y de orden con sus etiquetas para el cliente.
Si la colección ya tiene datos hay que pasar --force para reemplazarlos.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		records := status.DefaultRecords()
		if dryRun {
			return printRecords(cmd.OutOrStdout(), records)
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return fmt.Errorf("conectando a mongo: %w", err)
		}
		defer client.Disconnect(context.Background())

		repo := repository.NewMongoOrderRepository(client.Database(cfg.MongoDBName))
		return seed(ctx, repo, records, force, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.Flags().BoolVar(&force, "force", false, "reemplaza los estados existentes")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "muestra los estados sin escribirlos")
}

func seed(ctx context.Context, store statusStore, records []model.StatusRecord, force bool, out io.Writer) error {
	// valida antes de tocar la colección
	if _, err := status.New(records); err != nil {
		return err
	}
	existing, err := store.FindAllStatuses(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 && !force {
		return fmt.Errorf("statuses ya tiene %d registros; use --force para reemplazarlos", len(existing))
	}
	if err := store.ReplaceStatuses(ctx, records); err != nil {
		return fmt.Errorf("escribiendo estados: %w", err)
	}
	fmt.Fprintf(out, "%d estados escritos\n", len(records))
	return nil
}

func printRecords(out io.Writer, records []model.StatusRecord) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIPO\tCÓDIGO\tETIQUETA")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Type, r.Internal, r.Customer)
	}
	return w.Flush()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
