package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/edumag/edumag/internal/coildriver"
	"github.com/edumag/edumag/internal/config"
	"github.com/edumag/edumag/internal/db"
	"github.com/edumag/edumag/internal/fieldmap"
	"github.com/edumag/edumag/internal/fieldsolver"
	"github.com/edumag/edumag/internal/fsutil"
	"github.com/edumag/edumag/internal/input"
	"github.com/edumag/edumag/internal/monitoring"
	"github.com/edumag/edumag/internal/session"
	"github.com/edumag/edumag/internal/version"
	"github.com/edumag/edumag/internal/vision"
)

var (
	configFile   = flag.String("config", "", "Path to a JSON config file (built-in defaults when empty)")
	settingsFile = flag.String("settings", config.DefaultSettingsPath, "File remembering the last serial port")
	portName     = flag.String("port", "", "Serial port of the coil driver (overrides config and settings)")
	listPorts    = flag.Bool("list-ports", false, "List serial ports and exit")
	sessionName  = flag.String("session", "free", "Session to run: free, chase, sequence, paint or route")
	difficulty   = flag.String("difficulty", "easy", "Route designer difficulty: easy, medium or hard")
	duration     = flag.Duration("duration", 0, "Target chase duration (config value when zero)")
	program      = flag.String("program", "", "Command sequence steps as B,F,theta,hold;...")
	devMode      = flag.Bool("dev", false, "Use a synthetic camera and a simulated driver board")
	debugListen  = flag.String("debug-listen", "localhost:8081", "Listen address for /debug/ and /metrics (empty disables)")
	dbFile       = flag.String("db", "", "Session history database (config value when empty)")
	fieldMapFile = flag.String("field-map", "", "Coil field map CSV for /debug/field-map (config value when empty)")
	solveArgs    = flag.String("solve", "", "Print the coil currents for B,F,theta and exit")
	verbose      = flag.Bool("verbose", false, "Log per-tick and per-frame detail")
	showVersion  = flag.Bool("version", false, "Print the version and exit")
)

func main() {
	flag.Parse()
	monitoring.SetVerbose(*verbose)

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Accessors carry the same defaults as config/edumag.defaults.json.
	cfg := config.Empty()
	if *configFile != "" {
		loaded, err := config.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}

	if *solveArgs != "" {
		out, err := solveCommand(*solveArgs)
		if err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Println(out)
		return
	}

	if *listPorts {
		ports, err := coildriver.ListPorts()
		if err != nil {
			log.Fatalf("%v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	opts, err := sessionOptions(cfg, *difficulty, *duration, *program)
	if err != nil {
		log.Fatalf("invalid session options: %v", err)
	}
	kind, err := session.ParseKind(*sessionName)
	if err != nil {
		log.Fatalf("%v", err)
	}
	sess, err := session.New(kind, opts)
	if err != nil {
		log.Fatalf("failed to create %s session: %v", kind, err)
	}

	metrics := monitoring.NewMetrics()
	fsys := fsutil.OSFileSystem{}

	// coil driver
	var driver coildriver.Driver = coildriver.DisabledDriver{}
	var channel *coildriver.Channel
	if *devMode {
		board := &coildriver.SimulatedBoard{}
		channel = coildriver.NewChannel(board.Device().Opener(), metrics)
		if err := channel.Connect("simulated", coildriver.PortOptions{}, cfg.GetSerialTimeout()); err != nil {
			log.Fatalf("failed to connect simulated board: %v", err)
		}
	} else {
		saved, err := config.LoadPortSetting(fsys, *settingsFile)
		if err != nil {
			log.Printf("ignoring port setting: %v", err)
		}
		if port := resolvePort(*portName, cfg.GetSerialPort(), saved); port != "" {
			channel = coildriver.NewChannel(nil, metrics)
			err := channel.Connect(port, coildriver.PortOptions{BaudRate: cfg.GetSerialBaud()}, cfg.GetSerialTimeout())
			if err != nil {
				log.Fatalf("failed to open coil driver: %v", err)
			}
			if port != saved {
				if err := config.SavePortSetting(fsys, *settingsFile, port); err != nil {
					log.Printf("failed to remember port: %v", err)
				}
			}
		} else {
			log.Printf("no serial port configured; coil commands are discarded")
		}
	}
	if channel != nil {
		channel.SetAttempts(cfg.GetEchoAttempts())
		driver = channel
		defer channel.Disconnect()
	}

	// session history
	path := *dbFile
	if path == "" {
		path = cfg.GetDBPath()
	}
	database, err := db.NewDB(path)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	// vision
	var cam vision.Camera
	if *devMode {
		cam = vision.NewSyntheticCamera()
	} else {
		cam = vision.NewVideoCamera(cfg.GetCameraDevice(), cfg.GetCameraWidth(), cfg.GetCameraHeight())
	}
	tracker := vision.NewTracker(trackerParams(cfg))
	slot := &vision.Slot{}
	worker := vision.NewWorker(cam, tracker, slot, metrics)
	if err := worker.Start(); err != nil {
		log.Printf("camera unavailable, running without tracking: %v", err)
	}
	defer worker.Stop()

	mailbox := input.NewMailbox()
	field := session.NewFieldController(opts.Solver, driver, cfg.GetMaxFieldMT(), metrics)
	loop, err := session.NewLoop(session.LoopConfig{
		Session:  sess,
		Field:    field,
		Slot:     slot,
		Input:    mailbox,
		Interval: cfg.GetTickInterval(),
		Recorder: database,
		Metrics:  metrics,
	})
	if err != nil {
		log.Fatalf("failed to create control loop: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	// debug server goroutine
	if *debugListen != "" {
		mux := http.NewServeMux()
		loop.AttachAdminRoutes(mux, mailbox)
		database.AttachAdminRoutes(mux)
		if channel != nil {
			channel.AttachAdminRoutes(mux)
		}
		mapPath := *fieldMapFile
		if mapPath == "" {
			mapPath = cfg.GetFieldMapPath()
		}
		if mapPath != "" {
			fm, err := fieldmap.Load(fsys, mapPath)
			if err != nil {
				log.Printf("field map disabled: %v", err)
			} else {
				fm.AttachAdminRoutes(mux, func() fieldsolver.CurrentVector {
					return loop.Field().Status().Currents
				})
			}
		}
		mux.Handle("/metrics", metrics.Handler())

		server := &http.Server{Addr: *debugListen, Handler: mux}
		wg.Add(1)
		go func() {
			defer wg.Done()
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Printf("debug server failed: %v", err)
				}
			}()
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("debug server shutdown error: %v", err)
				server.Close()
			}
		}()
		log.Printf("debug endpoints on http://%s/debug/", *debugListen)
	}

	// control loop goroutine; a finished session ends the process
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer stop()
		if err := loop.Run(ctx); err != nil {
			log.Printf("control loop: %v", err)
		}
	}()

	wg.Wait()

	st := loop.Status()
	log.Printf("%s session ended: score %d %s", st.Session, st.Score, st.Detail)
	if best, ok, err := database.BestScore(context.Background(), kind); err != nil {
		log.Printf("failed to read best score: %v", err)
	} else if ok {
		log.Printf("best %s score so far: %d", kind, best)
	}
}
