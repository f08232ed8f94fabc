package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"thaitanloi365/picture-protector/facebluring"
	"thaitanloi365/picture-protector/internal/batch"
	"thaitanloi365/picture-protector/internal/config"
	"thaitanloi365/picture-protector/internal/log"
	"thaitanloi365/picture-protector/internal/server"
	"thaitanloi365/picture-protector/protector"
	"thaitanloi365/picture-protector/share"
)

const usage = `usage: picture-protector [-config file.yaml] <command> [flags]

commands:
  blur    -in a.jpg -out b.jpg [-faces 0,2]   blur all or the chosen faces
  detect  -in a.jpg                          print detected faces as JSON
  batch   -in dir -out dir [-workers N]      blur every face in a directory
  serve   [-port 3000]                       run the HTTP API
`

func main() {
	configPtr := flag.String("config", "", "Path to a YAML config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPtr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[-] %v\n", err)
		os.Exit(1)
	}

	logger := log.NewLogger(cfg.Log)

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "blur":
		err = runBlur(cfg, args)
	case "detect":
		err = runDetect(cfg, args)
	case "batch":
		err = runBatch(cfg, args)
	case "serve":
		err = runServe(cfg, logger, args)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		logger.WithField("command", cmd).Fatal(err)
	}
}

func runBlur(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("blur", flag.ExitOnError)
	inPtr := fs.String("in", "", "Input image")
	outPtr := fs.String("out", "", "Output image (format from extension)")
	facesPtr := fs.String("faces", "", "Comma separated face indexes to blur (default: all)")
	outlinePtr := fs.Bool("outline", false, "Draw a frame around every detected face")
	_ = fs.Parse(args)

	if *inPtr == "" || *outPtr == "" {
		return errors.New("blur: -in and -out are required")
	}

	format, err := facebluring.FormatFromName(*outPtr)
	if err != nil {
		return err
	}

	fb, err := facebluring.New(&cfg.Face)
	if err != nil {
		return err
	}

	if *facesPtr == "" && !*outlinePtr {
		return writeImage(*outPtr, func(f *os.File) error {
			return fb.BlurFaces(*inPtr, f)
		})
	}

	src, err := imaging.Open(*inPtr, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("can not open %s: %w", *inPtr, err)
	}

	faces, err := fb.DetectFaces(context.Background(), src)
	if err != nil {
		return err
	}

	if err := flagFaces(faces, *facesPtr); err != nil {
		return err
	}

	var img image.Image = fb.Renderer().Render(src, faces)
	if *outlinePtr {
		img = fb.Renderer().Outline(img, faces)
	}

	err = writeImage(*outPtr, func(f *os.File) error {
		return facebluring.Encode(f, img, format, cfg.Face.JPEGQuality)
	})
	if err != nil {
		return err
	}

	log.Info(log.Fields{
		"in":      *inPtr,
		"out":     *outPtr,
		"faces":   len(faces),
		"blurred": facebluring.Flagged(faces),
	}, "Image written")
	return nil
}

// flagFaces marks the faces named in list, or every face when list is empty.
func flagFaces(faces []facebluring.Face, list string) error {
	if strings.TrimSpace(list) == "" {
		facebluring.SetAll(faces, true)
		return nil
	}

	for _, part := range strings.Split(list, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return fmt.Errorf("invalid face index %q: %w", part, err)
		}
		if i < 0 || i >= len(faces) {
			return fmt.Errorf("face index %d out of range, %d faces detected", i, len(faces))
		}
		faces[i].Blur = true
	}
	return nil
}

// writeImage creates path and fills it with write. The file is removed when
// anything fails, so no empty or truncated image is left behind.
func writeImage(path string, write func(f *os.File) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if err = write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runDetect(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	inPtr := fs.String("in", "", "Input image")
	_ = fs.Parse(args)

	if *inPtr == "" {
		return errors.New("detect: -in is required")
	}

	fb, err := facebluring.New(&cfg.Face)
	if err != nil {
		return err
	}

	src, err := imaging.Open(*inPtr, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("can not open %s: %w", *inPtr, err)
	}

	faces, err := fb.DetectFaces(context.Background(), src)
	if err != nil {
		return err
	}

	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Width  int                `json:"width"`
		Height int                `json:"height"`
		Faces  []facebluring.Face `json:"faces"`
	}{src.Bounds().Dx(), src.Bounds().Dy(), faces})
}

func runBatch(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	inPtr := fs.String("in", "", "Input directory")
	outPtr := fs.String("out", "", "Output directory")
	workersPtr := fs.Int("workers", cfg.Batch.Workers, "Workers")
	_ = fs.Parse(args)

	if *inPtr == "" || *outPtr == "" {
		return errors.New("batch: -in and -out are required")
	}

	fb, err := facebluring.New(&cfg.Face)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	report, err := batch.Run(ctx, fb, batch.Options{
		InputDir:  *inPtr,
		OutputDir: *outPtr,
		Workers:   *workersPtr,
	})
	if err != nil {
		return err
	}

	log.Info(log.Fields{
		"files":   len(report.Results),
		"faces":   report.Faces(),
		"elapsed": time.Since(start).String(),
	}, "Batch finished")
	return nil
}

func runServe(cfg *config.Config, logger *logrus.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	portPtr := fs.String("port", cfg.Server.Port, "Port")
	_ = fs.Parse(args)

	fb, err := facebluring.New(&cfg.Face)
	if err != nil {
		return err
	}

	sharer, err := share.New(cfg.Share)
	if err != nil {
		return err
	}

	store := protector.NewStore(fb, cfg.Server.SessionTTL)

	srv, err := server.NewServer(
		server.WithFiber(server.NewFiber(cfg.Server.BodyLimitMB)),
		server.WithLogger(logger),
		server.WithValidator(config.NewValidator()),
		server.WithStore(store),
		server.WithSharer(sharer),
		server.WithMiddleware(cfg.Server.RateLimit, cfg.Server.RateBurst),
		server.WithLimits(cfg.Server.MaxUploadMB, cfg.Server.RequestTimeout),
		server.WithJPEGQuality(fb.Config().JPEGQuality),
	)
	if err != nil {
		return err
	}

	srv.RegisterHandler()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Server.SessionTTL > 0 && cfg.Server.SweepInterval > 0 {
		go store.Run(ctx, cfg.Server.SweepInterval, func(removed int) {
			if removed > 0 {
				log.Debug(log.Fields{"removed": removed}, "Expired sessions swept")
			}
		})
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Run(*portPtr); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.WithField("port", *portPtr).Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
