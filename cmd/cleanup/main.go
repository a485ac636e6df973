package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/osms-business/osms_server/config"
	"github.com/osms-business/osms_server/internal/database"
	"github.com/osms-business/osms_server/internal/pkg/address"
	"github.com/osms-business/osms_server/internal/pkg/oracle"
	"github.com/osms-business/osms_server/internal/pkg/pricefeed"
	"github.com/osms-business/osms_server/internal/repository"
	"github.com/osms-business/osms_server/internal/service"
)

var (
	dryRun = flag.Bool("dry-run", true, "Dry run mode, only count stale payment intents")
	limit  = flag.Int("limit", 1000, "Max pending intents to inspect")
)

func main() {
	flag.Parse()

	log.Println("Starting payment expiry cleanup...")
	log.Printf("Mode: dry-run=%v, limit=%d", *dryRun, *limit)

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 连接数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// 过期判定不会询问 oracle
	paymentService := service.NewPaymentService(
		repository.NewPaymentRepository(db),
		repository.NewUserRepository(db),
		pricefeed.NewStatic(cfg.Currencies),
		oracle.NewSimulated(0, 1),
		address.NewGenerator(),
		cfg,
	)

	log.Println(strings.Repeat("=", 60))
	if *dryRun {
		n, err := paymentService.StaleCount(*limit)
		if err != nil {
			log.Fatalf("Failed to count stale intents: %v", err)
		}
		log.Printf("Stale pending intents: %d", n)
		log.Println("DRY RUN MODE - nothing was changed")
		log.Println("   Run with -dry-run=false to expire them")
	} else {
		n, err := paymentService.ExpireStale(context.Background(), *limit)
		if err != nil {
			log.Fatalf("Failed to expire stale intents: %v", err)
		}
		log.Printf("Expired %d stale pending intents", n)
	}
	log.Println(strings.Repeat("=", 60))
}
