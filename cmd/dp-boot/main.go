// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command dp-boot (re)starts the processes of a dual-port RAM bridge
// node, optionally monitoring them with pmon.
package main // import "github.com/go-lpc/dpbridge/cmd/dp-boot"

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-lpc/dpbridge"
	"github.com/sbinet/pmon"
	"golang.org/x/sync/errgroup"
)

var (
	stop = make(chan os.Signal, 1)
)

func main() {
	log.SetPrefix("dp-boot: ")
	log.SetFlags(0)

	var (
		doMon  = flag.Bool("pmon", false, "enable pmon monitoring")
		doFreq = flag.Duration("freq", 1*time.Second, "pmon frequency")
		doKill = flag.Bool("kill", true, "kill already running instances before starting")
		dir    = flag.String("dir", os.Getenv("DPBRIDGE_LOGDIR"), "directory for log files")
		doVers = flag.Bool("version", false, "print version and exit")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: dp-boot [OPTIONS] [CMD [CMD...]]

ex:
 $> dp-boot -pmon -freq=2s "dp-bridge -id dp-01 -lvl dbg"

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if *doVers {
		printVersion(os.Stdout)
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		args = []string{"dp-bridge"}
	}

	cmds := make([]*exec.Cmd, 0, len(args))
	for _, arg := range args {
		cmd, err := command(arg)
		if err != nil {
			flag.Usage()
			log.Fatalf("invalid command %q: %+v", arg, err)
		}
		cmds = append(cmds, cmd)
	}

	if *doKill {
		killall(cmds)
	}

	err := run(*doMon, *doFreq, cmds, *dir, stop)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func printVersion(w io.Writer) {
	version, sum := dpbridge.Version()
	if version == "" {
		version = "(unknown)"
	}
	if sum != "" {
		version += " " + sum
	}
	fmt.Fprintf(w, "dp-boot %s\n", version)
}

func command(line string) (*exec.Cmd, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return exec.Command(args[0], args[1:]...), nil
}

func killall(cmds []*exec.Cmd) {
	for _, cmd := range cmds {
		name := filepath.Base(cmd.Path)
		kill := exec.Command("killall", name)
		kill.Stderr = os.Stderr
		kill.Stdout = os.Stdout
		err := kill.Run()
		if err != nil {
			log.Printf("could not kill %q: %+v", name, err)
		}
	}
}

func run(doMon bool, freq time.Duration, cmds []*exec.Cmd, dir string, stop chan os.Signal) error {
	signal.Notify(stop, os.Interrupt)
	defer signal.Stop(stop)

	if dir == "" {
		dir = "/var/log/dpbridge"
	}

	var (
		grp  errgroup.Group
		kill = make(chan int)
	)

	for i := range cmds {
		cmd := cmds[i]
		grp.Go(func() error {
			return start(cmd, dir, kill, doMon, freq)
		})
	}

	go func() {
		<-stop
		close(kill)
	}()

	err := grp.Wait()
	if err != nil {
		return fmt.Errorf("could not boot bridge: %w", err)
	}
	return nil
}

func start(cmd *exec.Cmd, dir string, kill chan int, doMon bool, freq time.Duration) error {
	name := filepath.Base(cmd.Path)
	out, err := os.Create(filepath.Join(dir, name+".log"))
	if err != nil {
		return fmt.Errorf("could not create output log file for %q: %w", name, err)
	}
	defer out.Close()

	cmd.Stdout = out
	cmd.Stderr = out

	log.Printf("starting %q...", name)
	err = cmd.Start()
	if err != nil {
		return fmt.Errorf("could not start %q: %w", name, err)
	}

	if doMon {
		p, err := pmon.Monitor(cmd.Process.Pid)
		if err != nil {
			return fmt.Errorf("could not start monitoring %q (pid=%d): %w", name, cmd.Process.Pid, err)
		}
		f, err := os.Create(filepath.Join(dir, name+"-pmon.log"))
		if err != nil {
			return fmt.Errorf("could not create pmon log file for command %q: %w", name, err)
		}
		defer f.Close()
		p.W = f
		p.Freq = freq

		go func() {
			log.Printf("run pmon %q...", name)
			err := p.Run()
			if err != nil {
				log.Printf("could not start monitoring %q: %+v", name, err)
			}
		}()

		defer func() {
			err := p.Kill()
			if err != nil {
				log.Printf("could not stop monitoring %q: %+v", name, err)
			}
		}()
	}

	errch := make(chan error, 1)
	go func() {
		errch <- cmd.Wait()
	}()

	select {
	case <-kill:
		err = cmd.Process.Kill()
		if err != nil {
			return fmt.Errorf("could not kill %q: %+v", name, err)
		}
		<-errch
	case err = <-errch:
		if err != nil {
			return fmt.Errorf("could not run %q: %w", name, err)
		}
	}

	return nil
}
