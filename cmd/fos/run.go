package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	filter "github.com/milosgajdos/go-fos"
	"github.com/milosgajdos/go-fos/config"
	"github.com/milosgajdos/go-fos/estimate"
	"github.com/milosgajdos/go-fos/fos"
	"github.com/milosgajdos/go-fos/kalman/kf"
	"github.com/milosgajdos/go-fos/sim"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/vg"
)

func doRun(cmd *cobra.Command, args []string) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	plotPath, err := cmd.Flags().GetString("plot")
	if err != nil {
		return err
	}
	component, err := cmd.Flags().GetInt("component")
	if err != nil {
		return err
	}
	reference, err := cmd.Flags().GetBool("reference")
	if err != nil {
		return err
	}

	log, err := newLogger(cmd)
	if err != nil {
		return err
	}

	c, err := config.Load(path)
	if err != nil {
		return err
	}

	task, err := c.NewTask()
	if err != nil {
		return errors.Wrap(err, "failed to create task")
	}

	ic, err := c.InitCond()
	if err != nil {
		return errors.Wrap(err, "failed to create initial condition")
	}

	store, err := c.Store()
	if err != nil {
		return errors.Wrap(err, "failed to create result store")
	}

	var covs []mat.Symmetric
	if reference {
		lin, ok := task.(filter.LinearTask)
		if !ok {
			return errors.Errorf("reference filter requires a linear task, got %q", c.Task.Kind)
		}

		if covs, err = kf.Covariances(lin, ic, store.Steps()); err != nil {
			return errors.Wrap(err, "reference filter failed")
		}
	}

	f, err := fos.New(task, store, ic, c.FilterConfig(log))
	if err != nil {
		return errors.Wrap(err, "failed to create filter")
	}

	// results of completed steps are reported even if the run fails
	runErr := f.Run()

	if err := writeTable(cmd, store, covs); err != nil {
		return err
	}

	if plotPath != "" && store.Len() > 1 {
		p, err := sim.NewResultPlot(store, component)
		if err != nil {
			return errors.Wrap(err, "failed to create plot")
		}

		if err := p.Save(8*vg.Inch, 5*vg.Inch, plotPath); err != nil {
			return errors.Wrap(err, "failed to save plot")
		}
		log.Info("plot saved", "path", plotPath)
	}

	return runErr
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	lvl, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(lvl)); err != nil {
		return nil, errors.Errorf("invalid log level: %q", lvl)
	}

	h := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})

	return slog.New(h), nil
}

func writeTable(cmd *cobra.Command, store *estimate.Store, covs []mat.Symmetric) error {
	w := table.NewWriter()
	w.SetOutputMirror(cmd.OutOrStdout())
	w.SetStyle(table.StyleLight)

	header := table.Row{"k", "t", "mean X", "mean Z", "mean E", "tr var E"}
	if covs != nil {
		header = append(header, "tr P")
	}
	w.AppendHeader(header)

	for k := 0; k < store.Len(); k++ {
		rec, err := store.At(k)
		if err != nil {
			return err
		}

		row := table.Row{k, fmt.Sprintf("%g", rec.Time), vec(rec.MeanX), vec(rec.MeanZ), vec(rec.MeanE),
			fmt.Sprintf("%.4g", mat.Trace(rec.VarE))}
		if covs != nil {
			row = append(row, fmt.Sprintf("%.4g", mat.Trace(covs[k])))
		}
		w.AppendRow(row)
	}
	w.Render()

	return nil
}

func vec(v mat.Vector) string {
	s := make([]string, v.Len())
	for i := range s {
		s[i] = fmt.Sprintf("%.4g", v.AtVec(i))
	}

	return strings.Join(s, " ")
}
