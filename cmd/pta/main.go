package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/BarrensZeppelin/pta"
	"github.com/BarrensZeppelin/pta/internal/slices"
	"github.com/BarrensZeppelin/pta/ir"
	"github.com/BarrensZeppelin/pta/progutil"
	log "github.com/sirupsen/logrus"
)

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
	taintFile  = flag.String("config", "", "taint rules in YAML `file`")
	cs         = flag.String("cs", "ci", "context sensitivity: ci, call, obj or type")
	k          = flag.Int("k", 1, "context depth for call, obj and type sensitivity")
	entry      = flag.String("entry", "", "entry method `signature` (defaults to the program's main)")
	debug      = flag.Bool("debug", false, "print debug messages")
)

func main() {
	flag.Parse()

	if *debug {
		log.SetLevel(log.DebugLevel)
	}
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})

	if flag.NArg() != 1 {
		log.Fatal("Specify a program file on the command line")
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				log.Fatal("Failed to close", f)
			}
		}()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	prog, err := progutil.LoadProgramFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("Loading program failed: %v", err)
	}
	log.Infof("Loaded %d classes", len(prog.Classes()))

	selectorName := *cs
	if selectorName != "ci" {
		selectorName = fmt.Sprintf("%d-%s", *k, selectorName)
	}
	selector, err := pta.SelectorByName(selectorName)
	if err != nil {
		log.Fatal(err)
	}

	config := pta.AnalysisConfig{
		Program:  prog,
		Selector: selector,
		Log:      log.StandardLogger(),
	}

	if *entry != "" {
		m, err := prog.Method(*entry)
		if err != nil {
			log.Fatalf("Bad entry method: %v", err)
		}
		config.Entries = []*ir.Method{m}
	}

	if *taintFile != "" {
		tc, err := pta.LoadTaintConfig(*taintFile, prog, config.Log)
		if err != nil {
			log.Warnf("%v; continuing without taint rules", err)
			tc = &pta.TaintConfig{}
		}
		log.Debug(tc)
		config.Taint = tc
	}

	res := pta.Analyze(config)

	cg := res.CallGraph()
	fmt.Printf("%d reachable methods (%d with contexts), %d call edges\n",
		len(res.ReachableMethods()), len(cg.ReachableMethods()), len(cg.Edges()))

	for _, group := range cg.RecursiveMethods() {
		names := slices.Map(group, func(m *pta.CSMethod) string { return m.String() })
		fmt.Println(au.Yellow("recursive:"), strings.Join(names, ", "))
	}

	if config.Taint != nil {
		flows := res.TaintFlows()
		if len(flows) == 0 {
			fmt.Println(au.Green("no taint flows"))
		}
		for _, f := range flows {
			fmt.Println(au.Red("taint flow:"), au.Magenta(f))
		}
	}
}
