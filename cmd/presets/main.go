package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	get "github.com/hashicorp/go-getter"

	"github.com/OCharnyshevich/raster-world/internal/engine/config"
)

func main() {
	var (
		src  = flag.String("src", "./presets", "preset bundle source (local dir, git::, http, s3:: ...)")
		name = flag.String("name", "", "fetch a single preset bundle subdirectory")
		out  = flag.String("o", filepath.Join(config.DefaultConfig().DataDir, "presets"), "output dir path")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *out == "" || *src == "" {
		log.Error("both -src and -o are required")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	url := *src
	if *name != "" {
		url = subdir(url, *name)
	}

	log.Info("downloading presets", "src", url, "dst", *out)
	if err := fetch(ctx, url, *out); err != nil {
		log.Error("download presets", "error", err)
		os.Exit(1)
	}

	names, err := validate(*out)
	if err != nil {
		log.Error("invalid presets", "error", err)
		os.Exit(1)
	}
	log.Info("presets ready", "dst", *out, "presets", strings.Join(names, ","))
}

// subdir addresses a subdirectory of a bundle the way go-getter does: after a
// "//" separator for remote sources, as a plain path for local ones.
func subdir(src, name string) string {
	if strings.Contains(src, "::") || strings.Contains(src, "://") {
		if strings.Contains(stripScheme(src), "//") {
			return src + "/" + name
		}
		return src + "//" + name
	}
	return filepath.Join(src, name)
}

func stripScheme(src string) string {
	if _, rest, ok := strings.Cut(src, "::"); ok {
		src = rest
	}
	if _, rest, ok := strings.Cut(src, "://"); ok {
		src = rest
	}
	return src
}

// fetch replaces dst with a copy of the bundle at src.
func fetch(ctx context.Context, src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("clean %s: %w", dst, err)
	}
	pwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getwd: %w", err)
	}

	// Local bundles are copied, not symlinked, so dst stays usable on its own.
	getters := maps.Clone(get.Getters)
	getters["file"] = &get.FileGetter{Copy: true}

	client := &get.Client{
		Ctx:     ctx,
		Src:     src,
		Dst:     dst,
		Pwd:     pwd,
		Mode:    get.ClientModeDir,
		Getters: getters,
	}
	if err := client.Get(); err != nil {
		return fmt.Errorf("get %s: %w", src, err)
	}
	return nil
}

// validate loads every preset in dir and returns their names.
func validate(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || !slices.Contains([]string{".yaml", ".yml", ".json", ".toml"}, ext) {
			continue
		}
		cfg, err := config.Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("preset %s: %w", e.Name(), err)
		}
		names = append(names, strings.TrimSuffix(e.Name(), ext))
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no presets in %s", dir)
	}
	return names, nil
}
