package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"papeterie/internal"
	"papeterie/internal/backend"
	"papeterie/internal/catalog"
	"papeterie/internal/config"
	"papeterie/internal/connectors"
	gmailconnector "papeterie/internal/connectors/gmail"
	imapconnector "papeterie/internal/connectors/imap"
	"papeterie/internal/copilot"
	"papeterie/internal/listener"
	"papeterie/internal/pricing"
	"papeterie/internal/reco"
	"papeterie/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	logger, err := zap.NewProduction()
	must(err)
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	cmd := os.Args[1]
	switch cmd {
	case "catalog:sync":
		client := backend.NewClient(cfg)
		svc := catalog.NewSyncService(db, client, cfg, logger)
		count, err := svc.Sync(ctx)
		must(err)
		fmt.Printf("catalog sync complete: %d products\n", count)

	case "pricing:init":
		client := backend.NewClient(cfg)
		importer := pricing.NewImportService(db, client, client, cfg, logger)
		data, err := importer.LoadInitial(ctx)
		must(err)
		fmt.Printf("initial load done: %d suppliers, %d products\n", len(data.Suppliers), len(data.Products))

	case "pricing:map":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "supplier pricing file")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		content, err := os.ReadFile(*file)
		must(err)
		parsed, err := pricing.ParseFile(content, *file)
		must(err)
		mapping := pricing.SuggestMapping(parsed.Headers)
		fmt.Printf("format=%s rows=%d\n", parsed.Format, len(parsed.Rows))
		for _, field := range []internal.LogicalField{
			internal.FieldSupplierReference, internal.FieldSupplierPrice, internal.FieldProductName,
			internal.FieldEAN, internal.FieldStockQuantity, internal.FieldLeadTimeDays, internal.FieldMinOrderQuantity,
		} {
			header, ok := mapping[field]
			if !ok {
				header = "-"
			}
			fmt.Printf("  %-20s -> %s\n", field, header)
		}
		if !pricing.MappingValid(mapping) {
			fmt.Println("mapping incomplet: référence fournisseur et prix sont requis")
		}

	case "pricing:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		supplierID := fs.Int("supplier", 0, "supplier id")
		file := fs.String("file", "", "supplier pricing file")
		_ = fs.Parse(os.Args[2:])
		if *supplierID == 0 || strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--supplier and --file are required"))
		}
		content, err := os.ReadFile(*file)
		must(err)
		client := backend.NewClient(cfg)
		importer := pricing.NewImportService(db, client, client, cfg, logger)
		report, err := importer.ImportFile(ctx, *supplierID, content, filepath.Base(*file))
		must(err)
		mirrored, err := db.CountSupplierPrices(*supplierID)
		must(err)
		fmt.Printf("import done success=%d errors=%d unmatched=%d total=%d (prix locaux=%d)\n",
			report.Success, report.Errors, report.Unmatched, report.Total, mirrored)

	case "copilot:run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "school list file")
		school := fs.String("school", "", "school name")
		class := fs.String("class", "", "class level")
		out := fs.String("out", "", "review xlsx path (optional)")
		local := fs.Bool("local", false, "skip the AI matcher")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		content, err := os.ReadFile(*file)
		must(err)

		products, err := db.ListProducts()
		must(err)
		if len(products) == 0 {
			must(fmt.Errorf("catalogue local vide: lancer catalog:sync d'abord"))
		}
		warnStaleCatalog(db)

		var matcher copilot.Matcher
		if *local || cfg.AIAPIKey == "" {
			matcher = copilot.NewLocalMatcher(cfg, products)
		} else {
			matcher = copilot.NewAIMatcher(cfg, products, logger)
		}

		client := backend.NewClient(cfg)
		store, err := copilot.NewObjectStore(ctx, cfg)
		must(err)
		uploader := copilot.NewUploader(db, store, cfg)
		extractor := copilot.NewExtractor(client)
		svc := copilot.NewService(db, uploader, extractor, matcher, cfg, logger)

		result, err := svc.Run(ctx, filepath.Base(*file), content, optional(*school), optional(*class))
		must(err)

		printResult(cfg, result)
		if strings.TrimSpace(*out) != "" {
			rows := copilot.BuildReviewRows(result.Matches, copilot.NewClassifier(cfg))
			must(copilot.ExportReviewXLSX(rows, *out))
			fmt.Printf("review exporté: %s\n", *out)
		}

	case "copilot:results":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		uploadID := fs.String("upload", "", "upload id")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*uploadID) == "" {
			must(fmt.Errorf("--upload is required"))
		}
		svc := copilot.NewService(db, nil, nil, nil, cfg, logger)
		result, err := svc.Results(*uploadID)
		must(err)
		printResult(cfg, result)

	case "reco:cross-sell":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		productID := fs.Int("product", 0, "product id")
		limit := fs.Int("limit", 4, "max candidates")
		_ = fs.Parse(os.Args[2:])
		if *productID == 0 {
			must(fmt.Errorf("--product is required"))
		}
		product, err := db.GetProduct(*productID)
		must(err)
		if product == nil {
			must(fmt.Errorf("produit %d inconnu dans le catalogue local", *productID))
		}
		ranker := reco.NewRanker(db, cfg)
		candidates, err := ranker.CrossSell(*productID, *limit)
		must(err)
		fmt.Printf("suggestions pour %s (%d):\n", product.Name, product.ID)
		notifier := reco.NewNotifier(db, logger)
		for _, c := range candidates {
			fmt.Printf("  %d %-40s %s score=%.2f\n", c.ProductID, c.Name, c.Relation, c.Score)
			notifier.Notify(c.ProductID, "cross_sell")
		}

	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap")
		label := fs.String("label", cfg.MailListenerLabel, "mailbox/label")
		max := fs.Int("max", cfg.MailListenerFetchMax, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := makeConnector(cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
		result, err := fetch.FetchAndStore(*label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", *provider, result.Fetched, result.Stored)

	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "", "gmail|imap (empty = all)")
		batch := fs.Int("batch", cfg.MailListenerProcessBatch, "batch size")
		_ = fs.Parse(os.Args[2:])
		client := backend.NewClient(cfg)
		importer := pricing.NewImportService(db, client, client, cfg, logger)
		mailService := pricing.NewMailService(db, importer, logger)
		processed, imported, err := mailService.ProcessPending(ctx, *batch, *provider)
		must(err)
		fmt.Printf("processed pending emails=%d imports=%d\n", processed, imported)

	case "mail:listen":
		s := listener.NewService(db, cfg, logger)
		must(s.Run(ctx))

	default:
		usage()
		os.Exit(1)
	}
}

func printResult(cfg config.Config, result copilot.Result) {
	classifier := copilot.NewClassifier(cfg)

	fmt.Printf("upload=%s fichier=%s lignes=%d\n", result.Upload.ID, result.Upload.FileName, len(result.Matches))
	for _, m := range result.Matches {
		badge := ""
		if band := classifier.BandFor(m); band != nil {
			badge = string(*band)
		}
		best := "-"
		if len(m.Candidates) > 0 {
			best = m.Candidates[0].Name
		}
		fmt.Printf("  %2d. %-40s x%-3d %-9s %-9s %s\n", m.Item.LineNo, m.Item.Label, m.Item.Quantity, m.Status, badge, best)
	}

	for _, cart := range result.Carts {
		fmt.Printf("panier %-9s articles=%d total=%.2f €\n", cart.Tier, cart.ItemsCount, cart.TotalTTC)
	}
	if result.Summary != nil {
		s := result.Summary
		fmt.Printf("du moins cher (%s, %.2f €) au plus cher (%s, %.2f €), économie %.2f €, %d ligne(s) à vérifier\n",
			s.CheapestTier, s.CheapestTotal, s.PriciestTier, s.PriciestTotal, s.Savings, s.ToReview)
	}
}

func makeConnector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// catalogSyncMaxAge is how old the local catalog may get before copilot
// runs warn that matches may be off.
const catalogSyncMaxAge = 7 * 24 * time.Hour

func warnStaleCatalog(db *storage.DB) {
	ts, err := db.GetMetadata("catalog.last_sync")
	if err != nil || ts == nil {
		return
	}
	last, err := time.Parse(time.RFC3339, *ts)
	if err != nil {
		return
	}
	if age := time.Since(last); age > catalogSyncMaxAge {
		fmt.Fprintf(os.Stderr, "attention: catalogue synchronisé il y a %d jours, relancer catalog:sync\n", int(age.Hours()/24))
	}
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func usage() {
	fmt.Println("usage: papeterie <command>")
	fmt.Println("commands:")
	fmt.Println("  catalog:sync")
	fmt.Println("  pricing:init")
	fmt.Println("  pricing:map --file=./tarifs.csv")
	fmt.Println("  pricing:import --supplier=1 --file=./tarifs.csv")
	fmt.Println("  copilot:run --file=./liste.pdf [--school=...] [--class=CE2] [--out=./out/review.xlsx] [--local]")
	fmt.Println("  copilot:results --upload=<id>")
	fmt.Println("  reco:cross-sell --product=1 [--limit=4]")
	fmt.Println("  mail:fetch [--provider=imap] [--label=INBOX] [--max=20]")
	fmt.Println("  mail:process [--provider=imap] [--batch=20]")
	fmt.Println("  mail:listen")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
