// Command epubake bakes an EPU environment to OpenEXR radiance levels and a
// PNG preview, and prints its SH9 irradiance and instruction hex.
//
// Usage:
//
//	epubake -preset daylight -size 256 -out ./baked -preview sky.png
//	epubake -env dusk.yaml -frames 30 -metrics-addr :2112
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gogpu/epu"
	"github.com/gogpu/epu/envfile"
	"github.com/gogpu/epu/export"
	_ "github.com/gogpu/epu/gpu"
	"github.com/gogpu/epu/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("epubake: %v", err)
	}
}

type options struct {
	envPath     string
	preset      string
	size        int
	time        float64
	frames      int
	dt          float64
	outDir      string
	preview     string
	latLong     int
	exposure    float64
	useGPU      bool
	metricsAddr string
	dump        bool
	list        bool
	verbose     bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	var o options
	fs := flag.NewFlagSet("epubake", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.envPath, "env", "", "YAML environment file")
	fs.StringVar(&o.preset, "preset", "daylight", "preset name when -env is not given")
	fs.IntVar(&o.size, "size", 0, "level-0 map size (power of two; 0 keeps EPU_MAP_SIZE or the default)")
	fs.Float64Var(&o.time, "time", 0, "evaluation time in seconds")
	fs.IntVar(&o.frames, "frames", 1, "number of builds to run, advancing time by -dt")
	fs.Float64Var(&o.dt, "dt", 1.0/30, "time step between frames")
	fs.StringVar(&o.outDir, "out", "", "directory for <name>_mip<N>.exr levels")
	fs.StringVar(&o.preview, "preview", "", "PNG preview path")
	fs.IntVar(&o.latLong, "latlong", 0, "also write a lat-long EXR of this width to -out")
	fs.Float64Var(&o.exposure, "exposure", 0, "preview exposure in stops")
	fs.BoolVar(&o.useGPU, "gpu", true, "use the GPU accelerator when available")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address until interrupted")
	fs.BoolVar(&o.dump, "dump", false, "print the environment as YAML")
	fs.BoolVar(&o.list, "list", false, "list presets and exit")
	fs.BoolVar(&o.verbose, "v", false, "debug logging to stderr")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.frames < 1 {
		return nil, fmt.Errorf("-frames must be at least 1, got %d", o.frames)
	}
	return &o, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	o, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	if o.verbose {
		epu.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	if o.list {
		fmt.Fprintln(stdout, strings.Join(epu.PresetNames(), "\n"))
		return nil
	}
	if !o.useGPU {
		epu.UnregisterAccelerator()
	}

	name, env, t0, err := loadEnvironment(o)
	if err != nil {
		return err
	}
	if o.dump {
		data, err := envfile.Marshal(envfile.FromEnvironment(name, &env))
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	}

	s, err := epu.SettingsFromEnv()
	if err != nil {
		return err
	}
	if o.size > 0 {
		s.MapSize = o.size
	}
	rt, err := epu.NewRuntime(epu.WithSettings(s))
	if err != nil {
		return err
	}
	defer rt.Close()
	if err := rt.SetEnvironment(0, env); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewCollector(rt, prometheus.Labels{"env": name}))

	var last epu.BuildReport
	for f := range o.frames {
		t := t0 + float32(float64(f)*o.dt)
		if last, err = rt.Build(ctx, []uint32{0}, t); err != nil {
			return fmt.Errorf("build frame %d: %w", f, err)
		}
	}
	maps := rt.Maps(0)

	if err := writeOutputs(o, name, maps); err != nil {
		return err
	}
	report(stdout, name, &env, maps, last, rt.Stats())

	if o.metricsAddr != "" {
		return metrics.Serve(ctx, o.metricsAddr, reg)
	}
	return nil
}

func loadEnvironment(o *options) (string, epu.Environment, float32, error) {
	if o.envPath == "" {
		env, ok := epu.Preset(o.preset)
		if !ok {
			return "", env, 0, fmt.Errorf("unknown preset %q (have %s)", o.preset, strings.Join(epu.PresetNames(), ", "))
		}
		return o.preset, env, float32(o.time), nil
	}
	f, err := envfile.LoadFile(o.envPath)
	if err != nil {
		return "", epu.Environment{}, 0, err
	}
	env, err := f.Environment()
	if err != nil {
		return "", env, 0, fmt.Errorf("%s: %w", o.envPath, err)
	}
	name := f.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(o.envPath), filepath.Ext(o.envPath))
	}
	t := f.Time
	if o.time != 0 {
		t = float32(o.time)
	}
	return name, env, t, nil
}

func writeOutputs(o *options, name string, maps *epu.EnvMaps) error {
	if o.outDir != "" {
		if err := os.MkdirAll(o.outDir, 0o750); err != nil {
			return err
		}
		paths, err := export.WriteLevels(o.outDir, name, maps)
		if err != nil {
			return err
		}
		for _, p := range paths {
			log.Printf("wrote %s", p)
		}
		if o.latLong > 0 {
			path := filepath.Join(o.outDir, name+"_latlong.exr")
			if err := createWith(path, func(f *os.File) error {
				return export.WriteLatLongEXR(f, maps.Levels[0], o.latLong, o.latLong/2)
			}); err != nil {
				return err
			}
			log.Printf("wrote %s", path)
		}
	}
	if o.preview != "" {
		if err := createWith(o.preview, func(f *os.File) error {
			return export.WritePreviewPNG(f, export.SamplerFunc(maps.Background), 512, 256, float32(o.exposure))
		}); err != nil {
			return err
		}
		log.Printf("wrote %s", o.preview)
	}
	return nil
}

func createWith(path string, write func(*os.File) error) error {
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func report(w io.Writer, name string, env *epu.Environment, maps *epu.EnvMaps, last epu.BuildReport, st epu.RuntimeStats) {
	fmt.Fprintf(w, "environment %s (%d levels, base %d, backend %s)\n",
		name, len(maps.Levels), maps.Levels[0].Size, last.Backend)
	fmt.Fprint(w, epu.DescribeEnvironment(env))
	fmt.Fprintf(w, "\nSH9 irradiance (from level %d):\n%s\n", maps.IrradianceLevel, maps.SH.String())
	fmt.Fprintf(w, "\nhex:\n%s", env.Hex())
	fmt.Fprintf(w, "\nbuilds=%d env_builds=%d skipped=%d fallbacks=%d\n",
		st.Builds, st.EnvBuilds, st.Skipped, st.Fallbacks)
}
