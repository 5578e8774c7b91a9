package emtf

import (
	"encoding/json"
	"fmt"
)

// Subsystem identifies the muon detector a trigger primitive comes from.
type Subsystem int

const (
	DT Subsystem = iota
	CSC
	RPC
	GEM
	ME0
)

var subsystemStrings = []string{
	"DT",
	"CSC",
	"RPC",
	"GEM",
	"ME0",
}

func (s Subsystem) String() string {
	if s < DT || s > ME0 {
		return "UNKNOWN"
	}
	return subsystemStrings[s]
}

func (s Subsystem) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Subsystem) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	return s.parse(str)
}

func (s Subsystem) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

func (s *Subsystem) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var str string
	if err := unmarshal(&str); err != nil {
		return err
	}
	return s.parse(str)
}

func (s *Subsystem) parse(str string) error {
	for i, v := range subsystemStrings {
		if v == str {
			*s = Subsystem(i)
			return nil
		}
	}
	return fmt.Errorf("invalid Subsystem: %s", str)
}

// Era selects how hits from different subsystems are merged into the
// chamber links of a sector.
type Era int

const (
	Run2_2016 Era = iota
	Phase2_timing
)

var eraStrings = []string{
	"Run2_2016",
	"Phase2_timing",
}

func (e Era) String() string {
	if e < Run2_2016 || e > Phase2_timing {
		return "UNKNOWN"
	}
	return eraStrings[e]
}

func (e Era) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

func (e *Era) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	return e.parse(str)
}

func (e Era) MarshalYAML() (interface{}, error) {
	return e.String(), nil
}

func (e *Era) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var str string
	if err := unmarshal(&str); err != nil {
		return err
	}
	return e.parse(str)
}

func (e *Era) parse(str string) error {
	for i, v := range eraStrings {
		if v == str {
			*e = Era(i)
			return nil
		}
	}
	return fmt.Errorf("invalid Era: %s", str)
}

// PtEngine selects the pt assignment strategy.
type PtEngine int

const (
	PtEngineBDT PtEngine = iota
	PtEngineLUT
)

var ptEngineStrings = []string{
	"bdt",
	"lut",
}

func (p PtEngine) String() string {
	if p < PtEngineBDT || p > PtEngineLUT {
		return "UNKNOWN"
	}
	return ptEngineStrings[p]
}

func (p PtEngine) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *PtEngine) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	return p.parse(str)
}

func (p PtEngine) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}

func (p *PtEngine) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var str string
	if err := unmarshal(&str); err != nil {
		return err
	}
	return p.parse(str)
}

func (p *PtEngine) parse(str string) error {
	for i, v := range ptEngineStrings {
		if v == str {
			*p = PtEngine(i)
			return nil
		}
	}
	return fmt.Errorf("invalid PtEngine: %s", str)
}
