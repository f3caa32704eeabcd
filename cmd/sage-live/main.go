// Command sage-live runs the Sagepoint assistant from a terminal, in text
// mode or against a real microphone and speaker via ffmpeg/ffplay.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/sagepoint-analytics/sage-go/pkg/config"
	"github.com/sagepoint-analytics/sage-go/pkg/history"
	"github.com/sagepoint-analytics/sage-go/sdk"
)

func main() {
	var (
		configPath = flag.String("config", "sage.yaml", "Path to the YAML config file")
		textMode   = flag.Bool("text", false, "Chat over stdin instead of opening a voice session")
		micDevice  = flag.String("mic-device", "", "Microphone device passed to ffmpeg")
		verbose    = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if err := run(*configPath, *textMode, *micDevice, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath string, textMode bool, micDevice string, verbose bool) error {
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	store, err := buildStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := []sage.ClientOption{
		sage.WithAPIKey(cfg.Gemini.APIKey),
		sage.WithChatModel(cfg.Gemini.ChatModel),
		sage.WithLiveModel(cfg.Gemini.LiveModel),
		sage.WithVoice(cfg.Gemini.Voice),
		sage.WithScriptURL(cfg.Script.URL),
		sage.WithLanguage(cfg.Language),
		sage.WithHistory(store),
		sage.WithLogger(logger),
		sage.WithMessageHook(printMessage),
	}

	sink := &ffplaySink{}
	if !textMode {
		opts = append(opts,
			sage.WithCaptureSource(newFFmpegCapture(micDevice)),
			sage.WithPlaybackSink(sink),
		)
	}
	defer sink.Close()

	client := sage.NewClient(opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if n := client.RefreshKnowledgeBase(ctx); n > 0 {
		logger.Info("knowledge base loaded", "entries", n)
	}
	cancel()

	if textMode {
		return runText(client)
	}
	return runVoice(client)
}

func buildStore(cfg *config.Config) (history.Store, error) {
	opts := []history.StoreOption{history.WithLanguage(cfg.Language)}
	switch history.Driver(cfg.History.Driver) {
	case history.DriverFile:
		opts = append(opts, history.WithFilePath(cfg.History.Path))
	case history.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.History.Redis.Addr,
			Password: cfg.History.Redis.Password,
			DB:       cfg.History.Redis.DB,
		})
		opts = append(opts, history.WithRedisClient(client))
		if cfg.History.Redis.Key != "" {
			opts = append(opts, history.WithRedisKey(cfg.History.Redis.Key))
		}
		if cfg.History.Redis.TTL > 0 {
			opts = append(opts, history.WithRedisTTL(cfg.History.Redis.TTL))
		}
	}
	return history.NewStore(history.Driver(cfg.History.Driver), opts...)
}

func printMessage(msg history.Message) {
	label := msg.Role
	if msg.Partial {
		label += " (partial)"
	}
	fmt.Printf("[%s] %s\n", label, msg.Text)
}

func runText(client *sage.Client) error {
	fmt.Println("Sagepoint assistant. Type a message, or /quit to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit":
			return nil
		case "/clear":
			if err := client.ClearHistory(context.Background()); err != nil {
				fmt.Fprintln(os.Stderr, "clear failed:", err)
			}
			continue
		}
		if _, err := client.SendText(context.Background(), line); err != nil {
			fmt.Fprintln(os.Stderr, "turn failed:", err)
		}
	}
}

func runVoice(client *sage.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := client.StartVoice(ctx)
	cancel()
	if err != nil {
		return err
	}
	fmt.Println("Voice session open. Press Ctrl+C to hang up.")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	client.StopVoice()
	return nil
}
