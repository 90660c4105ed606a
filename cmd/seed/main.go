package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"campaignlens/internal/config"
	"campaignlens/internal/logging"
	"campaignlens/internal/repository"
)

var (
	campaignID string
	count      int
	days       int
	seed       int64
	reset      bool
	mongoURI   string
	mongoDB    string
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert synthetic survey responses for a campaign",
	Long: `Generates synthetic survey responses (approval, likelihood, issue, trust and a
free-text answer) with demographics written under varying key spellings, then
inserts them into the responses collection.`,
	RunE: runSeed,
}

func init() {
	rootCmd.Flags().StringVarP(&campaignID, "campaign", "c", "demo", "campaign id")
	rootCmd.Flags().IntVarP(&count, "count", "n", 500, "number of responses")
	rootCmd.Flags().IntVarP(&days, "days", "d", 45, "spread responses over this many days")
	rootCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = time based)")
	rootCmd.Flags().BoolVar(&reset, "reset", false, "delete the campaign's responses first")
	rootCmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "MongoDB URI (default $MONGO_URI)")
	rootCmd.Flags().StringVar(&mongoDB, "mongo-db", "", "MongoDB database (default $MONGO_DB)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSeed(cmd *cobra.Command, args []string) error {
	if count <= 0 {
		return fmt.Errorf("--count must be positive")
	}
	if days < 0 {
		return fmt.Errorf("--days must not be negative")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if mongoURI == "" {
		mongoURI = cfg.MongoURI
	}
	if mongoDB == "" {
		mongoDB = cfg.MongoDB
	}

	logger, err := logging.New(cfg.Log.Level, true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer client.Disconnect(context.Background())

	repo := repository.NewResponseRepo(client.Database(mongoDB))

	if reset {
		deleted, err := repo.DeleteByCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		logger.Info("deleted existing responses", zap.String("campaignId", campaignID), zap.Int64("count", deleted))
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	records := NewGenerator(seed, time.Now()).Generate(campaignID, count, days)

	inserted, err := repo.InsertMany(ctx, records)
	if err != nil {
		return err
	}
	logger.Info("seeded responses",
		zap.String("campaignId", campaignID),
		zap.Int("inserted", inserted),
		zap.Int("days", days),
		zap.Int64("seed", seed))
	return nil
}
