package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/handle-graph/handle"
	"github.com/wippyai/handle-graph/wasmbind"
)

func main() {
	var (
		scenario    = flag.String("scenario", "chain", "Demo graph to build: chain, diamond, shared")
		maxHandles  = flag.Int("max-handles", 0, "Handle table bound (0 = unbounded)")
		maxDeps     = flag.Int("max-deps", 0, "Per-handle dependency list bound (0 = unbounded)")
		printWIT    = flag.Bool("wit", false, "Print the guest-facing host interface and exit")
		verbose     = flag.Bool("v", false, "Enable debug logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer log.Sync()
		handle.SetLogger(log.Named("handle"))
		wasmbind.SetLogger(log.Named("wasmbind"))
	}

	cfg := handle.Config{
		MaxHandles:      *maxHandles,
		MaxDependencies: *maxDeps,
	}

	if *printWIT {
		fmt.Print(wasmbind.New(handle.NewRegistry(cfg)).WIT())
		return
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, *scenario); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg handle.Config, scenario string) error {
	reg := handle.NewRegistry(cfg)
	defer reg.Close()

	reg.Subscribe(newTraceObserver())

	fmt.Printf("Building scenario %q\n\n", scenario)
	items, err := buildScenario(reg, scenario)
	if err != nil {
		return err
	}

	fmt.Println()
	printTable(reg)

	fmt.Println("\nDropping creator claims in creation order:")
	for _, it := range items {
		fmt.Printf("\nrelease(%s)\n", it.name)
		if err := reg.Release(it.h); err != nil {
			return fmt.Errorf("release %s: %w", it.name, err)
		}
	}

	fmt.Printf("\nLive handles: %d\n", reg.Len())
	return nil
}

type demoHandle struct {
	name string
	h    handle.Handle
}

func buildScenario(reg *handle.Registry, name string) ([]demoHandle, error) {
	switch name {
	case "chain":
		// publisher -> node -> context, the classic client-library shape
		ctx, err := create(reg, "context")
		if err != nil {
			return nil, err
		}
		node, err := create(reg, "node")
		if err != nil {
			return nil, err
		}
		pub, err := create(reg, "publisher")
		if err != nil {
			return nil, err
		}
		if err := reg.AddDependency(node.h, ctx.h); err != nil {
			return nil, err
		}
		if err := reg.AddDependency(pub.h, node.h); err != nil {
			return nil, err
		}
		return []demoHandle{ctx, node, pub}, nil

	case "diamond":
		// app claims core through two independent libraries
		core, err := create(reg, "core")
		if err != nil {
			return nil, err
		}
		liba, err := create(reg, "lib-a")
		if err != nil {
			return nil, err
		}
		libb, err := create(reg, "lib-b")
		if err != nil {
			return nil, err
		}
		app, err := create(reg, "app")
		if err != nil {
			return nil, err
		}
		for _, edge := range [][2]handle.Handle{
			{liba.h, core.h},
			{libb.h, core.h},
			{app.h, liba.h},
			{app.h, libb.h},
		} {
			if err := reg.AddDependency(edge[0], edge[1]); err != nil {
				return nil, err
			}
		}
		return []demoHandle{core, liba, libb, app}, nil

	case "shared":
		// writer claims the buffer twice; both claims drop in one cascade
		buf, err := create(reg, "buffer")
		if err != nil {
			return nil, err
		}
		writer, err := create(reg, "writer")
		if err != nil {
			return nil, err
		}
		reader, err := create(reg, "reader")
		if err != nil {
			return nil, err
		}
		for _, edge := range [][2]handle.Handle{
			{writer.h, buf.h},
			{writer.h, buf.h},
			{reader.h, buf.h},
		} {
			if err := reg.AddDependency(edge[0], edge[1]); err != nil {
				return nil, err
			}
		}
		return []demoHandle{buf, writer, reader}, nil

	default:
		return nil, fmt.Errorf("unknown scenario %q (want chain, diamond, or shared)", name)
	}
}

func create(reg *handle.Registry, name string) (demoHandle, error) {
	h, err := reg.New(name, func(resource any) {
		fmt.Printf("  ! destructor  freeing %v\n", resource)
	})
	if err != nil {
		return demoHandle{}, fmt.Errorf("create %s: %w", name, err)
	}
	return demoHandle{name: name, h: h}, nil
}

type row struct {
	name  string
	deps  []handle.Handle
	h     handle.Handle
	count uint32
}

// snapshot collects the live table in two passes: ids under Each, counts
// and edges afterwards, since Each callbacks must not reenter the registry.
func snapshot(reg *handle.Registry) []row {
	var ids []handle.Handle
	var names []string
	reg.Each(func(h handle.Handle, resource any) bool {
		name, _ := resource.(string)
		ids = append(ids, h)
		names = append(names, name)
		return true
	})

	rows := make([]row, 0, len(ids))
	for i, h := range ids {
		count, err := reg.RefCount(h)
		if err != nil {
			continue
		}
		deps, err := reg.Dependencies(h)
		if err != nil {
			continue
		}
		rows = append(rows, row{name: names[i], deps: deps, h: h, count: count})
	}
	return rows
}

func formatDeps(deps []handle.Handle) string {
	if len(deps) == 0 {
		return "-"
	}
	parts := make([]string, len(deps))
	for i, d := range deps {
		parts[i] = strconv.Itoa(int(d))
	}
	return strings.Join(parts, ", ")
}

func printTable(reg *handle.Registry) {
	fmt.Printf("%-4s %-12s %-7s %s\n", "ID", "NAME", "CLAIMS", "DEPENDENCIES")
	for _, r := range snapshot(reg) {
		fmt.Printf("%-4d %-12s %-7d %s\n", r.h, r.name, r.count, formatDeps(r.deps))
	}
}

// traceObserver prints lifecycle events as they happen, remembering names
// from created events so later lines can use them.
type traceObserver struct {
	names map[handle.Handle]string
}

func newTraceObserver() *traceObserver {
	return &traceObserver{names: make(map[handle.Handle]string)}
}

func (o *traceObserver) name(h handle.Handle) string {
	if n, ok := o.names[h]; ok {
		return n
	}
	return fmt.Sprintf("handle-%d", h)
}

func (o *traceObserver) OnHandleEvent(e handle.Event) {
	switch e.Type {
	case handle.EventCreated:
		if n, ok := e.Resource.(string); ok {
			o.names[e.Handle] = n
		}
		fmt.Printf("  + created   %-12s id=%d refcount=%d\n", o.name(e.Handle), e.Handle, e.RefCount)
	case handle.EventLinked:
		fmt.Printf("  ~ linked    %-12s -> %s (refcount %d)\n", o.name(e.Handle), o.name(e.Related), e.RefCount)
	case handle.EventReleased:
		fmt.Printf("  - released  %-12s refcount=%d\n", o.name(e.Handle), e.RefCount)
	case handle.EventDestroyed:
		fmt.Printf("  x destroyed %-12s\n", o.name(e.Handle))
	}
}
