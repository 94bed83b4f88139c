// Command counter evaluates arithmetic found in text, either from its
// arguments and input or as a line or HTTP server.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"git.sr.ht/~sircmpwn/getopt"
	"github.com/fatih/color"

	"github.com/zephyrtronium/counter"
	"github.com/zephyrtronium/counter/internal/parsecache"
)

const usage = `usage: counter [-eSn] [-g name=value]... [-s seed] [-d depth] [-b bits]
               [-i file] [-l addr] [-H addr] [-c size] [expr...]
  -g name=value  define a variable (any number of times)
  -s seed        seed for dice rolls
  -d depth       maximum evaluation depth
  -b bits        maximum size of powers, factorials, and shifts
  -e             print parse trees
  -S             require each input to be exactly one expression
  -n             treat each input line as a separate expression
  -i file        input file (default stdin if no expressions given)
  -l addr        serve one expression per line on a TCP address
  -H addr        serve JSON evaluation requests over HTTP
  -c size        number of parses to cache when serving (default 1024)`

func main() {
	log.SetFlags(0)
	if err := run(os.Args, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// options holds the command configuration.
type options struct {
	with     [][2]string
	seed     uint64
	seeded   bool
	depth    int
	bits     int64
	echo     bool
	strict   bool
	lines    bool
	inname   string
	lineAddr string
	httpAddr string
	cache    int
}

// readFlags parses options from args, which includes the program name. It
// returns the remaining arguments.
func readFlags(args []string) (*options, []string, error) {
	o := options{cache: 1024}
	opts, optind, err := getopt.Getopts(args, "g:s:d:b:eSni:l:H:c:h")
	if err != nil {
		return nil, nil, fmt.Errorf("%v\n%s", err, usage)
	}
	for _, opt := range opts {
		switch opt.Option {
		case 'g':
			d := strings.SplitN(opt.Value, "=", 2)
			if len(d) != 2 {
				return nil, nil, fmt.Errorf(`variable definitions must be "name=value", not %q`, opt.Value)
			}
			o.with = append(o.with, [2]string{strings.TrimSpace(d[0]), strings.TrimSpace(d[1])})
		case 's':
			v, err := strconv.ParseUint(opt.Value, 0, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid seed %q", opt.Value)
			}
			o.seed, o.seeded = v, true
		case 'd':
			v, err := strconv.Atoi(opt.Value)
			if err != nil || v < 0 {
				return nil, nil, fmt.Errorf("invalid depth %q", opt.Value)
			}
			o.depth = v
		case 'b':
			v, err := strconv.ParseInt(opt.Value, 0, 64)
			if err != nil || v < 0 {
				return nil, nil, fmt.Errorf("invalid bit limit %q", opt.Value)
			}
			o.bits = v
		case 'e':
			o.echo = true
		case 'S':
			o.strict = true
		case 'n':
			o.lines = true
		case 'i':
			o.inname = opt.Value
		case 'l':
			o.lineAddr = opt.Value
		case 'H':
			o.httpAddr = opt.Value
		case 'c':
			v, err := strconv.Atoi(opt.Value)
			if err != nil || v < 0 {
				return nil, nil, fmt.Errorf("invalid cache size %q", opt.Value)
			}
			o.cache = v
		case 'h':
			return nil, nil, fmt.Errorf("%s", usage)
		}
	}
	return &o, args[optind:], nil
}

// evaluator parses and evaluates messages for every front end.
type evaluator struct {
	ctx   *counter.Context
	cache *parsecache.Cache
	echo  bool
}

// newEvaluator creates an evaluator from the command options.
func newEvaluator(o *options) (*evaluator, error) {
	var copts []counter.ContextOption
	if o.seeded {
		copts = append(copts, counter.WithRand(&lockedSource{r: rand.New(rand.NewPCG(o.seed, o.seed))}))
	}
	if o.depth > 0 {
		copts = append(copts, counter.MaxDepth(o.depth))
	}
	if o.bits > 0 {
		copts = append(copts, counter.MaxBits(o.bits))
	}
	ctx := counter.NewContext(copts...)
	for _, d := range o.with {
		nm, vl := d[0], d[1]
		r, err := counter.EvalString(vl, copts...)
		if err != nil {
			return nil, fmt.Errorf("setting %s: %w", nm, err)
		}
		ctx.Set(nm, r)
	}
	var popts []counter.ParseOption
	if o.strict {
		popts = append(popts, counter.Strict())
	}
	return &evaluator{
		ctx:   ctx,
		cache: parsecache.New(o.cache, popts...),
		echo:  o.echo,
	}, nil
}

// eval evaluates the expression found in text and formats the result.
func (ev *evaluator) eval(text string) (string, error) {
	a, err := ev.cache.Parse(text)
	if err != nil {
		return "", err
	}
	ctx := ev.ctx.Clone()
	r := ctx.Eval(a)
	if r == nil {
		return "", ctx.Err()
	}
	if ev.echo {
		return a.String() + " : " + counter.Format(r), nil
	}
	return counter.Format(r), nil
}

// reply evaluates text and formats the result or error as one line.
func (ev *evaluator) reply(text string) string {
	s, err := ev.eval(text)
	if err != nil {
		return "error: " + err.Error()
	}
	return s
}

// lockedSource makes a seeded generator safe to share among servers'
// goroutines.
type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	o, args, err := readFlags(args)
	if err != nil {
		return err
	}
	ev, err := newEvaluator(o)
	if err != nil {
		return err
	}
	if o.lineAddr != "" || o.httpAddr != "" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, ev, o.lineAddr, o.httpAddr)
	}

	var ins []string
	in, err := infile(o.inname, stdin, len(args) == 0)
	if err != nil {
		return err
	}
	if in != nil {
		ins, err = readInput(in, o.lines)
		if err != nil {
			return err
		}
	}
	ins = append(ins, args...)

	red := color.New(color.FgRed)
	for _, text := range ins {
		s, err := ev.eval(text)
		if err != nil {
			red.Fprintf(stdout, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(stdout, s)
	}
	return nil
}

// infile opens the input named by inname, or returns stdin if inname is "-"
// or std is true.
func infile(inname string, stdin io.Reader, std bool) (io.Reader, error) {
	switch {
	case inname != "" && inname != "-":
		f, err := os.Open(inname)
		if err != nil {
			return nil, err
		}
		return f, nil
	case inname == "-", std:
		return stdin, nil
	}
	return nil, nil
}

// readInput reads expressions from r, either all of it as one or each
// non-blank line separately.
func readInput(r io.Reader, lines bool) ([]string, error) {
	if c, ok := r.(io.Closer); ok && r != os.Stdin {
		defer c.Close()
	}
	if !lines {
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(string(b)) == "" {
			return nil, nil
		}
		return []string{string(b)}, nil
	}
	var ins []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		ins = append(ins, sc.Text())
	}
	return ins, sc.Err()
}
