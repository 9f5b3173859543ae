package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dpup/wayfinder/internal/config"
	"github.com/dpup/wayfinder/internal/lib/district"
	"github.com/dpup/wayfinder/internal/lib/geo"
	"github.com/dpup/wayfinder/internal/lib/mapdoc"
	"github.com/dpup/wayfinder/internal/lib/routing"
	"github.com/dpup/wayfinder/internal/services"
)

func usage() {
	fmt.Printf("Directions Test Tool\n\n")
	fmt.Printf("Exercises the routing tiers, district labels and map generator against live services.\n\n")
	fmt.Printf("Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Printf("Commands:\n")
	fmt.Printf("  route     Compute a route through the provider chain (or one provider)\n")
	fmt.Printf("  distance  Print the district distance label for a site\n")
	fmt.Printf("  map       Write an HTML map document for a route\n")
	fmt.Printf("  kml       Write a KML export for a route\n")
	fmt.Printf("  probe     Run the connectivity self-test against every provider\n")
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  %s route -origin=\"6.9271,79.8612\" -dest=\"7.2906,80.6337\"\n", os.Args[0])
	fmt.Printf("  %s route -provider=google -mode=walking\n", os.Args[0])
	fmt.Printf("  %s distance -district=Kandy -lat=7.2936 -lon=80.6413\n", os.Args[0])
	fmt.Printf("  %s map -out=kandy.html -label=\"Temple of the Tooth\"\n", os.Args[0])
	fmt.Printf("  WAYFINDER__DIRECTIONS__GOOGLE__API_KEY=your_key %s probe\n", os.Args[0])
}

func main() {
	if len(os.Args) < 2 || os.Args[1] == "-help" || os.Args[1] == "help" {
		usage()
		return
	}

	// .env is optional
	_ = godotenv.Load(".env")

	cmd, args := os.Args[1], os.Args[2:]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	var (
		configPath = fs.String("config", "", "YAML config file (directions section)")
		originStr  = fs.String("origin", "6.927100,79.861200", "Origin coordinates (lat,lon)")
		destStr    = fs.String("dest", "7.290600,80.633700", "Destination coordinates (lat,lon)")
		modeStr    = fs.String("mode", "driving", "Travel mode: driving, walking or cycling")
		provider   = fs.String("provider", "", "Use only this provider (osrm or google); default is the configured chain")
		noFallback = fs.Bool("no-fallback", false, "Disable the straight-line fallback")
		label      = fs.String("label", "Destination", "Destination label for map and kml")
		out        = fs.String("out", "", "Output file for map and kml (default stdout)")
		districtN  = fs.String("district", "Colombo", "District name for distance")
		lat        = fs.Float64("lat", 6.9344, "Site latitude for distance")
		lon        = fs.Float64("lon", 79.8500, "Site longitude for distance")
		verbose    = fs.Bool("v", false, "Log provider activity")
	)
	if err := fs.Parse(args); err != nil {
		log.Fatal(err)
	}

	appConfig, err := config.LoadFile(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := zap.NewNop()
	if *verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			log.Fatalf("Failed to build logger: %v", err)
		}
	}

	providers := services.NewProviders(appConfig, logger)
	if *provider != "" {
		providers = selectProvider(providers, *provider)
	}

	ctx, cancel := context.WithTimeout(context.Background(), appConfig.RequestTimeout)
	defer cancel()

	switch cmd {
	case "route":
		result := routing.NewChain(logger, providers...).Route(ctx, buildRequest(*originStr, *destStr, *modeStr, !*noFallback))
		printResult(result)

	case "distance":
		resolver := district.NewResolver(district.Default(), appConfig.Bounds, logger)
		fmt.Println(resolver.AutoCalculateDistance(*districtN, *lat, *lon))

	case "map", "kml":
		req := buildRequest(*originStr, *destStr, *modeStr, !*noFallback)
		result := routing.NewChain(logger, providers...).Route(ctx, req)
		printResult(result)

		origin := req.Origin
		cfg := mapdoc.Config{
			Destination:  mapdoc.Destination{Point: req.Destination, Label: *label},
			UserLocation: &origin,
		}
		if result != nil {
			cfg.RouteGeometry = result.Geometry
			cfg.ShowFallbackBanner = result.IsFallback
		}

		gen := mapdoc.NewGenerator(mapdoc.Options{TileURL: appConfig.Map.TileURL, Attribution: appConfig.Map.Attribution, Logger: logger})
		doc := gen.Render(cfg)
		if cmd == "kml" {
			if doc, err = gen.RenderKML(cfg); err != nil {
				log.Fatalf("KML export failed: %v", err)
			}
		}
		writeOutput(*out, doc)

	case "probe":
		if len(providers) == 0 {
			log.Fatal("No providers configured")
		}
		fmt.Printf("Connectivity Self-Test\n")
		fmt.Printf("======================\n")
		failed := 0
		for _, p := range providers {
			ok := routing.Probe(ctx, p, logger)
			status := "✅ reachable"
			if !ok {
				status = "❌ unreachable"
				failed++
			}
			fmt.Printf("%-8s %s\n", p.Name(), status)
		}
		if failed == len(providers) {
			fmt.Printf("\nAll providers down: only straight-line estimates will be served.\n")
			os.Exit(1)
		}

	default:
		usage()
		os.Exit(2)
	}
}

func selectProvider(providers []routing.Provider, name string) []routing.Provider {
	for _, p := range providers {
		if p.Name() == name {
			return []routing.Provider{p}
		}
	}
	log.Fatalf("Provider %q is not configured (google needs an API key)", name)
	return nil
}

func buildRequest(originStr, destStr, modeStr string, allowFallback bool) routing.Request {
	origin, err := parsePoint(originStr)
	if err != nil {
		log.Fatalf("Invalid origin coordinates: %v", err)
	}
	dest, err := parsePoint(destStr)
	if err != nil {
		log.Fatalf("Invalid destination coordinates: %v", err)
	}
	mode, err := routing.ParseMode(modeStr)
	if err != nil {
		log.Fatal(err)
	}
	return routing.Request{Origin: origin, Destination: dest, Mode: mode, AllowFallback: allowFallback}
}

func parsePoint(s string) (geo.Point, error) {
	var lat, lon float64
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%f,%f", &lat, &lon); err != nil {
		return geo.Point{}, err
	}
	return geo.NewPoint(lat, lon)
}

func printResult(result *routing.Result) {
	if result == nil {
		fmt.Fprintf(os.Stderr, "❌ No route found\n")
		return
	}
	fmt.Fprintf(os.Stderr, "Provider:  %s\n", result.Provider)
	fmt.Fprintf(os.Stderr, "Distance:  %.1f km\n", result.DistanceKm)
	fmt.Fprintf(os.Stderr, "Duration:  %.0f min\n", result.DurationMin)
	fmt.Fprintf(os.Stderr, "Points:    %d\n", len(result.Geometry))
	if result.Summary != "" {
		fmt.Fprintf(os.Stderr, "Via:       %s\n", result.Summary)
	}
	if result.IsFallback {
		fmt.Fprintf(os.Stderr, "⚠️  Straight-line estimate, no road route available\n")
	}
}

func writeOutput(path, doc string) {
	if path == "" {
		fmt.Print(doc)
		return
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", path, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
}
