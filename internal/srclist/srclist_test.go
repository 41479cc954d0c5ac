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

package srclist

import (
	"bytes"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/mlnoga/burstlight/internal/burst"
)

func burstCands(scores ...float64) []burst.Candidate {
	res:=make([]burst.Candidate, len(scores))
	for i,s:=range scores {
		res[i]=burst.Candidate{Frame:i, Mode:burst.ModeBurst, Score:s, RA:350+float64(i), Dec:-5-float64(i)}
	}
	return res
}

func TestBuildRanksAndNormalizes(t *testing.T) {
	o:=Options{Threshold:15, MaxSources:3, FluxNorm:500, RefFreqHz:1.6e8}
	srcs, err:=Build(burstCands(10, 20, 30, 5, 25), o)
	if err!=nil { t.Fatal(err) }
	wantScores:=[]float64{30, 25, 20}
	wantFlux:=[]float64{500, 25.0/30*500, 20.0/30*500}
	wantFrames:=[]int{2, 4, 1}
	if len(srcs)!=3 { t.Fatalf("got %d sources", len(srcs)) }
	for i,s:=range srcs {
		if s.Score!=wantScores[i] || math.Abs(s.FluxJy-wantFlux[i])>1e-9 || s.Frame!=wantFrames[i] || s.FreqHz!=1.6e8 {
			t.Errorf("source %d: got %+v", i, s)
		}
	}
}

func TestBuildSkipsFallbacks(t *testing.T) {
	cands:=burstCands(100, 40)
	cands[0].Mode=burst.ModeFallback
	srcs, err:=Build(cands, DefaultOptions())
	if err!=nil { t.Fatal(err) }
	if len(srcs)!=1 || srcs[0].Frame!=1 || srcs[0].FluxJy!=500 { t.Errorf("got %+v", srcs) }
}

func TestBuildNoQualifyingSources(t *testing.T) {
	_, err:=Build(burstCands(1, 2, 3), DefaultOptions())
	if !errors.Is(err, ErrNoQualifyingSources) { t.Errorf("got %v", err) }
	_, err=Build(nil, DefaultOptions())
	if !errors.Is(err, ErrNoQualifyingSources) { t.Errorf("empty: got %v", err) }
}

func TestBuildSkipsUnmappedCandidates(t *testing.T) {
	cands:=burstCands(40, 35)
	cands[0].RA, cands[0].Dec = math.NaN(), math.NaN()
	srcs, err:=Build(cands, DefaultOptions())
	if err!=nil { t.Fatal(err) }
	if len(srcs)!=1 || srcs[0].Frame!=1 || srcs[0].FluxJy!=500 { t.Errorf("got %+v", srcs) }

	var buf bytes.Buffer
	if err:=Write(&buf, srcs); err!=nil { t.Fatal(err) }
	back, err:=Read(&buf)
	if err!=nil { t.Fatalf("written sky model unreadable: %v", err) }
	if len(back)!=1 || back[0].RA!=351 || back[0].Dec!=-6 { t.Errorf("read back %+v", back) }

	cands[1].Dec=math.Inf(1)
	if _, err:=Build(cands, DefaultOptions()); !errors.Is(err, ErrNoQualifyingSources) {
		t.Errorf("all unmapped: got %v", err)
	}
}

func TestBuildRejectsNonPositiveTopScore(t *testing.T) {
	o:=Options{Threshold:-10, MaxSources:4, FluxNorm:500, RefFreqHz:1.6e8}
	if _, err:=Build(burstCands(-5, -3), o); !errors.Is(err, ErrNoQualifyingSources) { t.Errorf("negative: got %v", err) }
	if _, err:=Build(burstCands(0), o); !errors.Is(err, ErrNoQualifyingSources) { t.Errorf("zero: got %v", err) }
}

func TestBuildIsIdempotent(t *testing.T) {
	cands:=burstCands(10, 20, 30, 5, 25)
	orig:=append([]burst.Candidate(nil), cands...)
	o:=Options{Threshold:15, MaxSources:3, FluxNorm:500, RefFreqHz:1.6e8}
	a, _:=Build(cands, o)
	b, _:=Build(cands, o)
	if !reflect.DeepEqual(a, b) { t.Errorf("repeated builds differ") }
	if !reflect.DeepEqual(cands, orig) { t.Errorf("input modified") }

	var wa, wb bytes.Buffer
	if err:=Write(&wa, a); err!=nil { t.Fatal(err) }
	if err:=Write(&wb, b); err!=nil { t.Fatal(err) }
	if wa.String()!=wb.String() { t.Errorf("repeated writes differ") }
}

func TestWriteFormat(t *testing.T) {
	srcs:=[]Source{{RA:350.1234567, Dec:-5.5, FreqHz:154240000, FluxJy:500}}
	var buf bytes.Buffer
	if err:=Write(&buf, srcs); err!=nil { t.Fatal(err) }
	out:=buf.String()
	for _,want:=range []string{
		"calibrator:", "- ra: 350.123457", "dec: -5.500000", "comp_type: point",
		"flux_type:", "list:", "- freq: 154240000.0", "i: 500.00",
	} {
		if !strings.Contains(out, want) { t.Errorf("missing %q in\n%s", want, out) }
	}

	back, err:=Read(strings.NewReader(out))
	if err!=nil { t.Fatal(err) }
	if len(back)!=1 || back[0].RA!=350.123457 || back[0].Dec!=-5.5 || back[0].FreqHz!=154240000 || back[0].FluxJy!=500 {
		t.Errorf("read back %+v", back)
	}
}

func TestReadRejectsOtherComponents(t *testing.T) {
	in:="src:\n  - ra: 1\n    dec: 2\n    comp_type: gaussian\n    flux_type:\n      list:\n        - freq: 1.0\n          i: 1.0\n"
	if _, err:=Read(strings.NewReader(in)); err==nil { t.Errorf("gaussian component accepted") }
}
