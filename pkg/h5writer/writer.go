// Package h5writer stores the track finder output in HDF5 tables.
package h5writer

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/jmbenlloch/go-hdf5"
	emtf "github.com/next-exp/emtf_go/pkg"
)

type EventDataHDF5 struct {
	evt_number uint64
	run_number uint64
	n_hits     int32
	n_tracks   int32
}

type ConfigParamsHDF5 struct {
	param [STRLEN]byte
	value int32
}

type HitHDF5 struct {
	evt_number uint64
	id         int32
	subsystem  int32
	endcap     int32
	sector     int32
	station    int32
	ring       int32
	chamber    int32
	csc_id     int32
	neighbor   int32
	link       int32
	strip      int32
	wire       int32
	roll       int32
	pattern    int32
	quality    int32
	bend       int32
	bx         int32
	phi_fp     int32
	theta_fp   int32
	zone_code  int32
	zone_hit   int32
}

type TrackHDF5 struct {
	evt_number       uint64
	endcap           int32
	sector           int32
	bx               int32
	zone             int32
	keystrip         int32
	pattern          int32
	straightness     int32
	mode             int32
	rank             int32
	phi_fp           int32
	theta_fp         int32
	first_bx         int32
	second_bx        int32
	hit_me1          int32
	hit_me2          int32
	hit_me3          int32
	hit_me4          int32
	pt_address       uint32
	pt_xml           float32
	pt               float32
	charge           int32
	quality          int32
	gmt_pt           int32
	gmt_phi          int32
	gmt_eta          int32
	gmt_quality      int32
	gmt_charge       int32
	gmt_charge_valid int32
}

type Writer struct {
	File        *hdf5.File
	Filename    string
	RunGroup    *hdf5.Group
	EMTFGroup   *hdf5.Group
	EventTable  *hdf5.Dataset
	ConfigTable *hdf5.Dataset
	HitsTable   *hdf5.Dataset
	TracksTable *hdf5.Dataset
	EvtCounter  int
}

// NewWriter creates filename, truncating it, and writes the configuration
// table.
func NewWriter(filename string, config emtf.Configuration) (*Writer, error) {
	file, err := hdf5.CreateFile(filename, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, &emtf.ErrOpenFile{Filename: filename, Err: err}
	}
	w := &Writer{File: file, Filename: filename}

	if w.RunGroup, err = file.CreateGroup("Run"); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	if w.EMTFGroup, err = file.CreateGroup(config.OutputLabel); err != nil {
		return nil, errors.Join(err, w.Close())
	}

	level := config.CompressionLevel
	if w.EventTable, err = createTable(w.RunGroup, "events", EventDataHDF5{}, level); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	if w.ConfigTable, err = createTable(w.RunGroup, "configuration", ConfigParamsHDF5{}, level); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	if w.HitsTable, err = createTable(w.EMTFGroup, "hits", HitHDF5{}, level); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	if w.TracksTable, err = createTable(w.EMTFGroup, "tracks", TrackHDF5{}, level); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	if err := w.writeConfiguration(config); err != nil {
		return nil, errors.Join(err, w.Close())
	}
	return w, nil
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func convertHits(evt uint64, hits []emtf.NormalizedHit) []HitHDF5 {
	// The array MUST be allocated at creation, if not, HDF5 will panic
	rows := make([]HitHDF5, len(hits))
	for i, h := range hits {
		rows[i] = HitHDF5{
			evt_number: evt,
			id:         int32(h.ID),
			subsystem:  int32(h.Subsystem),
			endcap:     int32(h.Endcap),
			sector:     int32(h.Sector),
			station:    int32(h.Station),
			ring:       int32(h.Ring),
			chamber:    int32(h.Chamber),
			csc_id:     int32(h.CSCID),
			neighbor:   boolToInt32(h.Neighbor),
			link:       int32(h.Link),
			strip:      int32(h.Strip),
			wire:       int32(h.Wire),
			roll:       int32(h.Roll),
			pattern:    int32(h.Pattern),
			quality:    int32(h.Quality),
			bend:       int32(h.Bend),
			bx:         int32(h.BX),
			phi_fp:     int32(h.PhiFP),
			theta_fp:   int32(h.Theta),
			zone_code:  int32(h.ZoneMask),
			zone_hit:   int32(h.ZoneHit),
		}
	}
	return rows
}

func convertTracks(evt uint64, tracks []emtf.Track) []TrackHDF5 {
	rows := make([]TrackHDF5, len(tracks))
	for i, t := range tracks {
		rows[i] = TrackHDF5{
			evt_number:       evt,
			endcap:           int32(t.Endcap),
			sector:           int32(t.Sector),
			bx:               int32(t.BX),
			zone:             int32(t.Zone),
			keystrip:         int32(t.Keystrip),
			pattern:          int32(t.Pattern),
			straightness:     int32(t.Straightness),
			mode:             int32(t.Mode),
			rank:             int32(t.Rank),
			phi_fp:           int32(t.PhiFP),
			theta_fp:         int32(t.Theta),
			first_bx:         int32(t.FirstBX),
			second_bx:        int32(t.SecondBX),
			hit_me1:          int32(t.HitIDs[0]),
			hit_me2:          int32(t.HitIDs[1]),
			hit_me3:          int32(t.HitIDs[2]),
			hit_me4:          int32(t.HitIDs[3]),
			pt_address:       t.PtAddress,
			pt_xml:           float32(t.PtXML),
			pt:               float32(t.Pt),
			charge:           int32(t.Charge),
			quality:          int32(t.Quality),
			gmt_pt:           int32(t.GMTPt),
			gmt_phi:          int32(t.GMTPhi),
			gmt_eta:          int32(t.GMTEta),
			gmt_quality:      int32(t.GMTQuality),
			gmt_charge:       int32(t.GMTCharge),
			gmt_charge_valid: int32(t.GMTChargeValid),
		}
	}
	return rows
}

func (w *Writer) WriteOutput(output *emtf.Output) error {
	event := EventDataHDF5{
		evt_number: output.Event,
		run_number: output.Run,
		n_hits:     int32(len(output.Hits)),
		n_tracks:   int32(len(output.Tracks)),
	}
	if err := writeEntryToTable(w.EventTable, event); err != nil {
		return fmt.Errorf("error writing event %d: %w", output.Event, err)
	}
	hits := convertHits(output.Event, output.Hits)
	if err := writeArrayToTable(w.HitsTable, &hits); err != nil {
		return fmt.Errorf("error writing hits of event %d: %w", output.Event, err)
	}
	tracks := convertTracks(output.Event, output.Tracks)
	if err := writeArrayToTable(w.TracksTable, &tracks); err != nil {
		return fmt.Errorf("error writing tracks of event %d: %w", output.Event, err)
	}
	w.EvtCounter++
	return nil
}

// configParams flattens the scalar fields of the configuration, named by
// their json tag. Booleans are stored as 0 or 1.
func configParams(config emtf.Configuration) []ConfigParamsHDF5 {
	t := reflect.TypeOf(config)
	v := reflect.ValueOf(config)
	entries := make([]ConfigParamsHDF5, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "pass" {
			continue
		}
		var value int32
		switch f.Type.Kind() {
		case reflect.Int:
			value = int32(v.Field(i).Int())
		case reflect.Bool:
			value = boolToInt32(v.Field(i).Bool())
		default:
			continue
		}
		entries = append(entries, ConfigParamsHDF5{
			param: convertToHdf5String(name),
			value: value,
		})
	}
	return entries
}

func (w *Writer) writeConfiguration(config emtf.Configuration) error {
	entries := configParams(config)
	return writeArrayToTable(w.ConfigTable, &entries)
}

func (w *Writer) Close() error {
	var errs []error
	for _, dset := range []*hdf5.Dataset{w.EventTable, w.ConfigTable, w.HitsTable, w.TracksTable} {
		if dset == nil {
			continue
		}
		if err := dset.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing dataset: %w", err))
		}
	}
	for _, group := range []*hdf5.Group{w.RunGroup, w.EMTFGroup} {
		if group == nil {
			continue
		}
		if err := group.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing group: %w", err))
		}
	}
	if err := w.File.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file: %w", err))
	}
	return errors.Join(errs...)
}
