package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"songshelf/src/handler/web"
	"songshelf/src/listing"
	"songshelf/src/player"
	"songshelf/src/player/mpd"
)

var (
	build       = "%BUILD%"
	version     = "%VERSION%"
	versionDate = "%VERSION_DATE%"
)

func main() {
	defaultLogLevel := "warn"
	if build == "debug" {
		defaultLogLevel = "debug"
	}

	configFile := flag.String("conf", confFile, "Path to the configuration file")
	printVersion := flag.Bool("version", false, "Print version information and exit")
	logLevel := flag.String("log", defaultLogLevel, "Sets the log level. [debug, info, warn, error]")
	flag.Parse()

	if ll, err := log.ParseLevel(*logLevel); err != nil {
		log.Fatalf("Could not parse log level: %v", err)
	} else {
		log.SetLevel(ll)
	}
	log.SetReportCaller(true)

	if *printVersion {
		fmt.Printf("Version: %v (%v)\n", version, versionDate)
		fmt.Printf("Build: %v\n", build)
		return
	}

	log.Infof("Version: %v (%v)\n", version, build)
	config, err := LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}
	if errs := config.Validate(); len(errs) > 0 {
		log.Fatalf("Could not load config: %v", errs)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	lister, err := listing.NewClient(
		config.BaseURL,
		config.AlbumsRoot,
		&http.Client{Timeout: config.HTTPTimeout},
		config.MetadataConcurrency,
	)
	if err != nil {
		log.Fatalf("Could not create listing client: %v", err)
	}
	log.Infof("Using %q as file server", lister.BaseURL())

	media, err := mpd.Connect(config.MPD.Network, config.MPD.Address, config.MPD.Password, lister.BaseURL(), config.ProgressInterval)
	if err != nil {
		log.Fatalf("Unable to connect to MPD: %v", err)
	}
	defer media.Close()

	ctl := player.NewController(lister, media)
	go ctl.Run(ctx)

	go func() {
		if err := ctl.Init(ctx, config.DefaultFolder); err != nil {
			log.WithField("folder", config.DefaultFolder).Errorf("Could not load the default folder: %v", err)
		}
		if albums, err := ctl.LoadAlbums(ctx); err == nil {
			log.Infof("Found %d albums", len(albums))
		}
	}()

	service, err := web.New(build, version, config.URLRoot, ctl)
	if err != nil {
		log.Fatalf("Could not set up web interface: %v", err)
	}
	if build == "debug" {
		service.Get("/debug/pprof/*", pprof.Index)
	}

	log.Infof("Now accepting HTTP connections on %v", config.Address)
	server := &http.Server{
		Addr:        config.Address,
		Handler:     service,
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: the event stream stays open indefinitely.
		IdleTimeout:    2 * time.Minute,
		MaxHeaderBytes: 1 << 20,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Error running webserver: %v", err)
	}
	log.Info("Shut down")
}
