package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/envkeeper/envkeeper/pkg/config"
	"github.com/envkeeper/envkeeper/pkg/dotenv"
	"github.com/envkeeper/envkeeper/pkg/logger"
	"github.com/envkeeper/envkeeper/pkg/storage"
	"github.com/envkeeper/envkeeper/pkg/sync"

	// Import backends to register them
	_ "github.com/envkeeper/envkeeper/pkg/storage/backblaze"
	_ "github.com/envkeeper/envkeeper/pkg/storage/local"
	_ "github.com/envkeeper/envkeeper/pkg/storage/presigned"
	_ "github.com/envkeeper/envkeeper/pkg/storage/s3"
	_ "github.com/envkeeper/envkeeper/pkg/storage/sftp"
)

const usage = `Usage: envkeeper [-config config.json] <command> [args]

Commands:
  push [name]              push the env file to every enabled profile
  pull <profile> [name]    pull an environment from a profile into the env file
  list <profile> [pattern] list environment objects on a profile
  delete <profile> <name>  delete an environment object from a profile
  prune <profile> [name]   delete old snapshots beyond the retention limit
`

func main() {
	configFile := flag.String("config", "./envkeeper.json", "path to configuration file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := config.Validate(*configFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.ParseConfig(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger.Init(cfg.GetLogLevel(), cfg.GetLogFormat())
	log := logger.Get()

	ctx := context.Background()
	syncer := sync.New(*log, cfg.GetMaxConcurrentPushes())
	factory := storage.NewFactory()

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "push":
		err = runPush(ctx, cfg, syncer, factory, args)
	case "pull":
		err = runPull(ctx, cfg, syncer, factory, args)
	case "list":
		err = runList(ctx, cfg, factory, args)
	case "delete":
		err = runDelete(ctx, cfg, factory, args)
	case "prune":
		err = runPrune(ctx, cfg, syncer, factory, args)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("command failed")
	}
}

func runPush(ctx context.Context, cfg *config.Config, syncer *sync.Syncer, factory *storage.Factory, args []string) error {
	name := objectName(cfg, args)

	envFile := cfg.GetEnvFile()
	content, err := os.ReadFile(envFile)
	if err != nil {
		return fmt.Errorf("read env file %s: %w", envFile, err)
	}

	backends, err := factory.CreateAll(ctx, cfg.EnabledProfiles())
	if err != nil {
		return err
	}
	defer closeBackends(backends)

	results, err := syncer.Push(ctx, backends, name, content, sync.PushOptions{Snapshot: true})
	for _, result := range results {
		status := "ok"
		if !result.Success {
			status = "failed"
		}
		fmt.Printf("%s (%s): %s\n", result.BackendName, result.BackendType, status)
	}
	return err
}

func runPull(ctx context.Context, cfg *config.Config, syncer *sync.Syncer, factory *storage.Factory, args []string) error {
	backend, rest, err := profileBackend(ctx, cfg, factory, args)
	if err != nil {
		return err
	}
	defer backend.Close()

	d, err := syncer.Pull(ctx, backend, objectName(cfg, rest))
	if err != nil {
		return err
	}

	return dotenv.Dump(d, cfg.GetEnvFile())
}

func runList(ctx context.Context, cfg *config.Config, factory *storage.Factory, args []string) error {
	backend, rest, err := profileBackend(ctx, cfg, factory, args)
	if err != nil {
		return err
	}
	defer backend.Close()

	pattern := "*"
	if len(rest) > 0 {
		pattern = rest[0]
	}

	files, err := backend.List(ctx, pattern)
	if err != nil {
		return err
	}
	for _, file := range files {
		fmt.Printf("%s\t%d\t%s\n", file.Path, file.Size, file.ModTime.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runDelete(ctx context.Context, cfg *config.Config, factory *storage.Factory, args []string) error {
	backend, rest, err := profileBackend(ctx, cfg, factory, args)
	if err != nil {
		return err
	}
	defer backend.Close()

	if len(rest) == 0 {
		return fmt.Errorf("delete requires an object name")
	}
	return backend.Delete(ctx, rest[0])
}

func runPrune(ctx context.Context, cfg *config.Config, syncer *sync.Syncer, factory *storage.Factory, args []string) error {
	backend, rest, err := profileBackend(ctx, cfg, factory, args)
	if err != nil {
		return err
	}
	defer backend.Close()

	deleted, err := syncer.Prune(ctx, backend, objectName(cfg, rest), cfg.GetSnapshotKeep())
	for _, path := range deleted {
		fmt.Printf("deleted %s\n", path)
	}
	return err
}

// profileBackend resolves the leading profile-name argument into a backend
func profileBackend(ctx context.Context, cfg *config.Config, factory *storage.Factory, args []string) (storage.Backend, []string, error) {
	if len(args) == 0 {
		return nil, nil, fmt.Errorf("a profile name is required")
	}
	profile := cfg.FindProfile(args[0])
	if profile == nil {
		return nil, nil, fmt.Errorf("unknown profile: %s", args[0])
	}

	backend, err := factory.Create(ctx, profile.Storage())
	if err != nil {
		return nil, nil, err
	}
	return backend, args[1:], nil
}

// objectName returns the explicit name argument, defaulting to the env
// file's base name
func objectName(cfg *config.Config, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return filepath.Base(cfg.GetEnvFile())
}

func closeBackends(backends []storage.Backend) {
	for _, backend := range backends {
		backend.Close()
	}
}
