package main

import (
	"flag"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"newtonviz.dev/internal/geometry"
	"newtonviz.dev/internal/model"
	"newtonviz.dev/internal/sdk/embedded"
	"newtonviz.dev/internal/viewer"
)

func main() {
	var (
		configPath = flag.String("config", "", "viewer yaml config path (optional)")
		addr       = flag.String("addr", "", "serving endpoint address (overrides config)")
		appID      = flag.String("app", "", "application id (overrides config)")
		webAddr    = flag.String("web_addr", "127.0.0.1:0", "web viewer listen address")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		record     = flag.Bool("record", false, "capture the session to a recording")
		demo       = flag.Bool("demo", true, "log an animated demo scene")
		rateHz     = flag.Int("rate", 30, "demo update rate (hz)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[viewerd] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := viewer.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.Address = *addr
	}
	if *appID != "" {
		cfg.AppID = *appID
	}

	opts := embedded.Options{WebAddr: *webAddr}
	if *record {
		opts.RecordDir = filepath.Join(*dataDir, "recordings")
		opts.IndexPath = filepath.Join(*dataDir, "recordings.db")
	}
	backend := embedded.New(opts, logger)

	v, err := viewer.NewRerun(cfg, backend, logger)
	if err != nil {
		logger.Fatalf("viewer: %v", err)
	}
	defer v.Close()

	if v.ServerURI() != "" {
		logger.Printf("serving endpoint: %s", v.ServerURI())
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	if !*demo {
		<-stop
		logger.Printf("shutting down")
		return
	}

	m, boxPath := demoModel(logger)
	if err := v.SetModel(m); err != nil {
		logger.Fatalf("set model: %v", err)
	}

	rate := *rateHz
	if rate <= 0 {
		rate = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-stop:
			logger.Printf("shutting down")
			return
		case <-ticker.C:
			t := time.Since(start).Seconds()
			if err := v.SetTime(t); err != nil {
				logger.Printf("set time: %v", err)
				continue
			}
			tf := geometry.TransformIdentity()
			tf.Pos = geometry.Vec3{0, float32(1.5 + math.Sin(t)), 0}
			if err := v.UpdateInstances(boxPath, geometry.InstanceBatch{
				Transforms: []geometry.Transform{tf},
			}); err != nil {
				logger.Printf("update instances: %v", err)
			}
		}
	}
}

// demoModel builds a small scene: a ground plane, a bobbing box and a
// resting sphere. Returns the model and the instance path of the box.
func demoModel(logger *log.Logger) (*model.Model, string) {
	b := model.NewBuilder()

	boxTf := geometry.TransformIdentity()
	boxTf.Pos = geometry.Vec3{0, 1.5, 0}
	boxBody := b.AddBody("box_body", boxTf, 1.0)
	boxShape := b.AddShapeBox(boxBody, 0.5, 0.5, 0.5)

	sphereTf := geometry.TransformIdentity()
	sphereTf.Pos = geometry.Vec3{2, 0.5, 0}
	sphereBody := b.AddBody("sphere_body", sphereTf, 1.0)
	b.AddShapeSphere(sphereBody, 0.5)

	b.AddShapePlane(-1, 10, 10)

	m, err := b.Finalize()
	if err != nil {
		logger.Fatalf("demo model: %v", err)
	}
	boxPath := "/model/" + m.Bodies[boxBody].Key + "/" + m.Shapes[boxShape].Key
	return m, boxPath
}
