package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	emtf "github.com/next-exp/emtf_go/pkg"
	"github.com/next-exp/emtf_go/pkg/h5writer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var runFlags struct {
	fileIn      string
	fileOut     string
	maxEvents   int
	skip        int
	noDB        bool
	runNumber   int
	metricsAddr string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the track finder on an event file",
	Long: `Reads events (one JSON object per line), runs the sector processors
and writes the tracks. Outputs ending in .h5 are written as HDF5 tables,
anything else as JSON lines ("-" is stdout).`,
	RunE: runTrackFinder,
}

func init() {
	flags := runCmd.Flags()
	flags.StringVarP(&runFlags.fileIn, "in", "i", "", "Input event file")
	flags.StringVarP(&runFlags.fileOut, "out", "o", "", "Output file")
	flags.IntVar(&runFlags.maxEvents, "max-events", 0, "Maximum number of events to process")
	flags.IntVar(&runFlags.skip, "skip", 0, "Number of events to skip")
	flags.BoolVar(&runFlags.noDB, "no-db", false, "Do not read conditions from the database")
	flags.IntVar(&runFlags.runNumber, "run", 0, "Run number used for the initial conditions")
	flags.StringVar(&runFlags.metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address")
}

func applyRunFlags(cmd *cobra.Command, config *emtf.Configuration) {
	flags := cmd.Flags()
	if flags.Changed("in") {
		config.FileIn = runFlags.fileIn
	}
	if flags.Changed("out") {
		config.FileOut = runFlags.fileOut
	}
	if flags.Changed("max-events") {
		config.MaxEvents = runFlags.maxEvents
	}
	if flags.Changed("skip") {
		config.Skip = runFlags.skip
	}
	if flags.Changed("no-db") {
		config.NoDB = runFlags.noDB
	}
	if flags.Changed("run") {
		config.RunNumber = runFlags.runNumber
	}
	if flags.Changed("metrics-addr") {
		config.MetricsAddr = runFlags.metricsAddr
	}
}

type outputSink interface {
	WriteOutput(output *emtf.Output) error
	Close() error
}

type jsonSink struct {
	writer *emtf.OutputWriter
	closer io.Closer
}

func (s *jsonSink) WriteOutput(output *emtf.Output) error {
	return s.writer.Write(output)
}

func (s *jsonSink) Close() error {
	err := s.writer.Flush()
	if s.closer != nil {
		err = errors.Join(err, s.closer.Close())
	}
	return err
}

func openSink(config emtf.Configuration) (outputSink, error) {
	switch {
	case config.FileOut == "" || config.FileOut == "-":
		return &jsonSink{writer: emtf.NewOutputWriter(os.Stdout)}, nil
	case strings.EqualFold(filepath.Ext(config.FileOut), ".h5"):
		return h5writer.NewWriter(config.FileOut, config)
	}
	file, err := os.Create(config.FileOut)
	if err != nil {
		return nil, &emtf.ErrOpenFile{Filename: config.FileOut, Err: err}
	}
	return &jsonSink{writer: emtf.NewOutputWriter(file), closer: file}, nil
}

func serveMetrics(addr string, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(fmt.Sprintf("metrics server: %v", err))
		}
	}()
	return server
}

// updateConditions loads the forest of run from the conditions database.
// The current model is kept when the database has none.
func updateConditions(store *emtf.ConditionsStore, tf *emtf.TrackFinder, run int) {
	config := tf.Configuration()
	if config.PtAssignEngine == emtf.PtEngineLUT && config.ReadPtLUTFile {
		return
	}
	forest, err := store.LoadForest(run, config.PtAssignVersion)
	if err != nil {
		var unknown *emtf.ErrUnknownForest
		if errors.As(err, &unknown) {
			if config.Verbosity > 0 {
				logger.Info(fmt.Sprintf("No forest for run %d in database, keeping %s", run, config.BDTXMLDir), "main")
			}
			return
		}
		logger.Error(fmt.Errorf("error reading conditions of run %d: %w", run, err).Error())
		return
	}
	if err := tf.UpdateConditions(forest, nil); err != nil {
		logger.Error(fmt.Errorf("error updating conditions of run %d: %w", run, err).Error())
	}
}

func runTrackFinder(cmd *cobra.Command, args []string) error {
	config, err := loadConfiguration()
	if err != nil {
		return err
	}
	applyRunFlags(cmd, &config)

	var store *emtf.ConditionsStore
	if !config.NoDB {
		dbConn, err := emtf.ConnectToDatabase(config.DBDriver, config.User, config.Passwd, config.Host, config.DBName)
		if err != nil {
			return fmt.Errorf("error connecting to database: %w", err)
		}
		defer dbConn.Close()
		store = emtf.NewConditionsStore(dbConn)

		params, found, err := store.LoadParams(config.RunNumber)
		if err != nil {
			return err
		}
		if found {
			params.Apply(&config)
		}
	}
	emtf.SetConfiguration(config)

	tf, err := emtf.NewTrackFinder(config)
	if err != nil {
		return err
	}
	registry := prometheus.NewRegistry()
	metrics, err := emtf.NewMetrics(registry)
	if err != nil {
		return err
	}
	tf.SetMetrics(metrics)
	if config.MetricsAddr != "" {
		server := serveMetrics(config.MetricsAddr, registry)
		defer server.Close()
	}

	reader, err := emtf.OpenEventFile(config.FileIn)
	if err != nil {
		return err
	}
	defer reader.Close()

	sink, err := openSink(config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	start := time.Now()
	currentRun := -1
	evtCount := -1
	evtsProcessed := 0
	for {
		event, err := reader.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Error(fmt.Errorf("error reading event: %w", err).Error())
			}
			break
		}
		evtCount++
		if evtCount < config.Skip {
			continue
		}
		if config.MaxEvents > 0 && evtsProcessed >= config.MaxEvents {
			break
		}

		if store != nil && int(event.Run) != currentRun {
			currentRun = int(event.Run)
			updateConditions(store, tf, currentRun)
		}

		output, err := tf.Process(ctx, event)
		if errors.Is(err, context.Canceled) {
			break
		}
		if err != nil {
			logger.Error(err.Error())
			logger.Error(fmt.Sprintf("discarding event %d", event.ID))
		}
		if err := sink.WriteOutput(output); err != nil {
			return errors.Join(err, sink.Close())
		}
		evtsProcessed++
		if config.Verbosity > 1 {
			logger.Info(fmt.Sprintf("Processed event %d: %d tracks", event.ID, len(output.Tracks)), "main")
		}
	}

	if err := sink.Close(); err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("Total events processed: %d in %d ms", evtsProcessed, time.Since(start).Milliseconds()), "main")
	return nil
}
