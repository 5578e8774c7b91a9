package emtf

import (
	"fmt"
	"io"
)

// rpcDumpDelay is the BX offset of RPC hits in the simulator input.
const rpcDumpDelay = 5

// DumpSector writes the hits and tracks of one sector processor as the
// raw text read by the firmware simulator. "12345" separates the BXs of
// the config BX range.
func DumpSector(w io.Writer, config *Configuration, endcap, sector int, hits []NormalizedHit, tracks []Track) {
	es := sectorIndex(endcap, sector)

	fmt.Fprintf(w, "==== Endcap %d Sector %d Hits ====\n", endcap, sector)
	fmt.Fprintln(w, "bx e s ss st vf ql cp wg id bd hs")

	empty := true
	for i := range hits {
		if hits[i].SectorIndex == es {
			empty = false
			break
		}
	}
	for ibx := config.MinBX - rpcDumpDelay; ibx < config.MaxBX+2*rpcDumpDelay && !empty; ibx++ {
		for i := range hits {
			h := &hits[i]
			if h.SectorIndex != es {
				continue
			}
			switch h.Subsystem {
			case CSC:
				if h.BX != ibx {
					continue
				}
				strip := h.Strip
				if h.Station == 1 && h.Ring == 4 {
					strip += 128
				}
				fmt.Fprintf(w, "1 %d %d %d %d 1 %d %d %d %d %d %d\n",
					h.Endcap, h.SourceSector, h.Subsector, h.Station, h.Quality, h.Pattern, h.Wire, h.CSCID, h.Bend, strip)
			case RPC:
				if h.BX+rpcDumpDelay != ibx {
					continue
				}
				sub := (h.Subsector + 3) % 6
				if h.Neighbor {
					sub = 6
				}
				chamber := h.Station - 1
				if h.Station > 2 {
					chamber = 2 + (h.Station-3)*2 + (h.Ring - 2)
				}
				fmt.Fprintf(w, "1 %d %d 0 %d 2 0 0 %d %d 0 %d\n",
					h.Endcap, h.SourceSector, sub, h.Theta>>2, chamber+1, h.PhiFP>>2)
			}
		}
		fmt.Fprintln(w, "12345")
	}

	fmt.Fprintf(w, "==== Endcap %d Sector %d Tracks ====\n", endcap, sector)
	fmt.Fprintln(w, "bx e s a mo et ph cr q pt")
	for i := range tracks {
		t := &tracks[i]
		if t.SectorIndex != es {
			continue
		}
		eta := t.GMTEta
		if eta < 0 {
			eta += 512
		}
		fmt.Fprintf(w, "%d %d %d %d %d %d %d %d %d %g\n",
			t.BX, t.Endcap, t.Sector, t.PtAddress, t.Mode, eta, t.GMTPhi, t.GMTCharge, t.GMTQuality, t.Pt)
	}
}
