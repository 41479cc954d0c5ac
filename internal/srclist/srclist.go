// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package srclist turns ranked burst candidates into a point source sky model
// in the YAML format read by the hyperdrive calibration program.
package srclist

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"

	"github.com/mlnoga/burstlight/internal/burst"
)

// No burst candidate reached the score threshold
var ErrNoQualifyingSources = errors.New("no burst sources above threshold")

// Name of the single source entry in the written sky model
const SourceName = "calibrator"

// Emission parameters
type Options struct {
	Threshold  float64 `mapstructure:"threshold"  json:"threshold"`  // minimum composite score
	MaxSources int     `mapstructure:"maxsources" json:"maxSources"` // maximum number of components
	FluxNorm   float64 `mapstructure:"fluxnorm"   json:"fluxNorm"`   // flux density of the strongest component in Jy
	RefFreqHz  float64 `mapstructure:"reffreq"    json:"refFreq"`    // reference frequency in Hz
}

// Defaults used between self-calibration iterations
func DefaultOptions() Options {
	return Options{Threshold:30, MaxSources:4, FluxNorm:500, RefFreqHz:154e6}
}

// A point source component of the sky model
type Source struct {
	RA      float64 // degrees
	Dec     float64 // degrees
	FreqHz  float64
	FluxJy  float64
	Score   float64 // composite score the flux was derived from
	Frame   int
}

// Selects burst candidates with a sky position scoring at least the threshold, strongest first,
// at most MaxSources, and scales their flux so the strongest has FluxNorm. Fails with
// ErrNoQualifyingSources if none qualify or the top score is not positive. Does not modify cands
func Build(cands []burst.Candidate, o Options) ([]Source, error) {
	sel:=make([]burst.Candidate, 0, len(cands))
	for _,c:=range cands {
		if c.Mode!=burst.ModeBurst || !(c.Score>=o.Threshold) { continue }
		if !hasSkyPosition(c) { continue }
		sel=append(sel, c)
	}
	sort.SliceStable(sel, func(i, j int) bool { return sel[i].Score>sel[j].Score })
	if o.MaxSources>=0 && len(sel)>o.MaxSources { sel=sel[:o.MaxSources] }
	if len(sel)==0 {
		return nil, fmt.Errorf("%w: threshold %g", ErrNoQualifyingSources, o.Threshold)
	}

	scores:=make([]float64, len(sel))
	for i,c:=range sel { scores[i]=c.Score }
	maxScore:=floats.Max(scores)
	if !(maxScore>0) {
		return nil, fmt.Errorf("%w: top score %g cannot be normalized", ErrNoQualifyingSources, maxScore)
	}

	res:=make([]Source, len(sel))
	for i,c:=range sel {
		res[i]=Source{
			RA:     c.RA,
			Dec:    c.Dec,
			FreqHz: o.RefFreqHz,
			FluxJy: c.Score/maxScore*o.FluxNorm,
			Score:  c.Score,
			Frame:  c.Frame,
		}
	}
	return res, nil
}

func hasSkyPosition(c burst.Candidate) bool {
	return !math.IsNaN(c.RA) && !math.IsInf(c.RA, 0) && !math.IsNaN(c.Dec) && !math.IsInf(c.Dec, 0)
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind:yaml.ScalarNode, Tag:tag, Value:value}
}

func floatNode(v float64, prec int) *yaml.Node {
	return scalar("!!float", strconv.FormatFloat(v, 'f', prec, 64))
}

func mapping(kv ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind:yaml.MappingNode, Content:kv}
}

func sequence(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind:yaml.SequenceNode, Content:items}
}

// Builds the YAML document for the given sources. Positions carry six decimals,
// frequencies one and fluxes two
func Document(sources []Source) *yaml.Node {
	comps:=make([]*yaml.Node, len(sources))
	for i,s:=range sources {
		comps[i]=mapping(
			scalar("!!str", "ra"),        floatNode(s.RA, 6),
			scalar("!!str", "dec"),       floatNode(s.Dec, 6),
			scalar("!!str", "comp_type"), scalar("!!str", "point"),
			scalar("!!str", "flux_type"), mapping(
				scalar("!!str", "list"), sequence(mapping(
					scalar("!!str", "freq"), floatNode(s.FreqHz, 1),
					scalar("!!str", "i"),    floatNode(s.FluxJy, 2),
				)),
			),
		)
	}
	return &yaml.Node{Kind:yaml.DocumentNode, Content:[]*yaml.Node{
		mapping(scalar("!!str", SourceName), sequence(comps...)),
	}}
}

// Writes the sources as hyperdrive sky model
func Write(w io.Writer, sources []Source) error {
	enc:=yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err:=enc.Encode(Document(sources)); err!=nil { return err }
	return enc.Close()
}

// Writes the sources as hyperdrive sky model to the named file
func WriteFile(fileName string, sources []Source) error {
	f, err:=os.Create(fileName)
	if err!=nil { return err }
	if err:=Write(f, sources); err!=nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", fileName, err)
	}
	return f.Close()
}

type fluxEntry struct {
	Freq float64 `yaml:"freq"`
	I    float64 `yaml:"i"`
}

type component struct {
	RA       float64 `yaml:"ra"`
	Dec      float64 `yaml:"dec"`
	CompType string  `yaml:"comp_type"`
	FluxType struct {
		List []fluxEntry `yaml:"list"`
	} `yaml:"flux_type"`
}

// Reads point source components from a hyperdrive sky model, in order of appearance
// within each source, sources sorted by name. Only list flux types are supported
func Read(r io.Reader) ([]Source, error) {
	var doc map[string][]component
	if err:=yaml.NewDecoder(r).Decode(&doc); err!=nil {
		return nil, fmt.Errorf("parsing sky model: %w", err)
	}
	names:=make([]string, 0, len(doc))
	for n:=range doc { names=append(names, n) }
	sort.Strings(names)

	var res []Source
	for _,n:=range names {
		for _,c:=range doc[n] {
			if c.CompType!="point" {
				return nil, fmt.Errorf("source %s: unsupported component type %q", n, c.CompType)
			}
			if len(c.FluxType.List)==0 {
				return nil, fmt.Errorf("source %s: no flux densities", n)
			}
			res=append(res, Source{RA:c.RA, Dec:c.Dec, FreqHz:c.FluxType.List[0].Freq, FluxJy:c.FluxType.List[0].I, Frame:-1})
		}
	}
	return res, nil
}
