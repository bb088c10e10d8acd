package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/sukalov/geniusbot/internal/cache"
	"github.com/sukalov/geniusbot/internal/logger"
	"github.com/sukalov/geniusbot/internal/lyrics"
	"github.com/sukalov/geniusbot/internal/lyrics/genius"
	"github.com/sukalov/geniusbot/internal/utils"
)

type request struct {
	artist, title string
}

func main() {
	var (
		cacheDir  string
		inputFile string
		refresh   bool
	)

	flag.StringVar(&cacheDir, "cache", utils.EnvOr("CACHE_DIR", "lyrics"), "Cache directory")
	flag.StringVar(&inputFile, "input", "", "File with one \"artist, song\" per line")
	flag.BoolVar(&refresh, "refresh", false, "Fetch even when the song is already cached")
	flag.Parse()

	args := flag.Args()
	if inputFile == "" && len(args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <artist> <song>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s [options] -input songs.txt\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "Example: %s \"Eminem\" \"Lose Yourself\"\n", os.Args[0])
		os.Exit(1)
	}

	env, err := utils.LoadEnv([]string{"GENIUS_TOKEN"})
	if err != nil {
		log.Fatal(err)
	}
	if err := logger.Init(utils.EnvOr("LOG_LEVEL", "info")); err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	requests := []request{}
	if inputFile != "" {
		requests, err = readRequests(inputFile)
		if err != nil {
			log.Fatalf("Error reading %s: %v", inputFile, err)
		}
	} else {
		requests = append(requests, request{artist: args[0], title: args[1]})
	}

	store, err := cache.New(cacheDir, 0)
	if err != nil {
		log.Fatalf("Error opening cache: %v", err)
	}
	service := lyrics.NewService(genius.NewClient(env["GENIUS_TOKEN"]), store)

	fmt.Println("=== Genius Lyrics Cache Warmer ===")
	fmt.Printf("Cache: %s\n", store.Dir())
	fmt.Printf("Songs: %d\n", len(requests))
	fmt.Println()

	ctx := context.Background()
	failed := 0
	for _, r := range requests {
		var res lyrics.Result
		if refresh {
			res, err = service.Fetch(ctx, r.artist, r.title)
		} else {
			res, err = service.Resolve(ctx, r.artist, r.title)
		}
		if err != nil {
			failed++
			logger.Error("failed to fetch song", zap.String("artist", r.artist), zap.String("title", r.title), zap.Error(err))
			continue
		}

		state := "fetched"
		if res.Cached {
			state = "cached"
		}
		fmt.Printf("%-8s %s - %s -> %s\n", state, r.artist, r.title, store.Path(res.Key))
	}

	if failed > 0 {
		log.Fatalf("%d of %d songs failed", failed, len(requests))
	}
	logger.Success("cache warm completed", zap.Int("songs", len(requests)), zap.String("cache", store.Dir()))
	fmt.Println("=== COMPLETED SUCCESSFULLY ===")
}

// readRequests parses "artist, song" lines; blank lines and lines starting with # are skipped.
func readRequests(path string) ([]request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var requests []request
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		artist, title, ok := strings.Cut(line, ",")
		artist, title = strings.TrimSpace(artist), strings.TrimSpace(title)
		if !ok || artist == "" || title == "" {
			return nil, fmt.Errorf("line %d: expected \"artist, song\", got %q", n, line)
		}
		requests = append(requests, request{artist: artist, title: title})
	}
	return requests, scanner.Err()
}
