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

package morph

import (
	"strings"
	"testing"
)

// Parses a mask from rows of '#' and '.'
func parse(rows ...string) *Mask {
	m:=NewMask(len(rows[0]), len(rows))
	for y,r:=range rows {
		for x,c:=range r {
			m.Data[y*m.Width+x]= c=='#'
		}
	}
	return m
}

func (m *Mask) String() string {
	var sb strings.Builder
	for y:=0; y<m.Height; y++ {
		for x:=0; x<m.Width; x++ {
			if m.Data[y*m.Width+x] { sb.WriteByte('#') } else { sb.WriteByte('.') }
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func TestErodeDilate(t *testing.T) {
	m:=parse(
		".......",
		".#####.",
		".#####.",
		".#####.",
		".......",
	)
	e:=m.Erode(1)
	want:=parse(
		".......",
		".......",
		"..###..",
		".......",
		".......",
	)
	if e.String()!=want.String() { t.Errorf("erode got\n%swant\n%s", e, want) }

	d:=want.Dilate(1)
	want=parse(
		".......",
		"..###..",
		".#####.",
		"..###..",
		".......",
	)
	if d.String()!=want.String() { t.Errorf("dilate got\n%swant\n%s", d, want) }
}

func TestErodeBorderIsUnset(t *testing.T) {
	m:=NewFullMask(5, 5)
	e:=m.Erode(1)
	if e.Count()!=9 { t.Errorf("got %d pixels, expected 9\n%s", e.Count(), e) }
	e=m.Erode(3)
	if e.Count()!=0 { t.Errorf("got %d pixels, expected 0", e.Count()) }
}

func TestOpenRemovesSpeckle(t *testing.T) {
	m:=parse(
		"#.........",
		"..........",
		"...#####..",
		"...#####..",
		"...#####..",
		"...#####..",
		"...#####..",
		"..........",
	)
	o:=m.Open(1)
	if o.At(0,0) { t.Errorf("speckle survived opening") }
	if !o.At(5,4) { t.Errorf("block center removed") }
}

func TestCloseFillsHole(t *testing.T) {
	m:=parse(
		"..........",
		".########.",
		".########.",
		".###.####.",
		".########.",
		".########.",
		"..........",
	)
	c:=m.Close(1)
	if !c.At(4,3) { t.Errorf("hole not filled\n%s", c) }
}

func TestLabel4(t *testing.T) {
	m:=parse(
		"##..#",
		"#...#",
		"..#..",
		".#.##",
	)
	labels, sizes:=m.Label4()
	if len(sizes)!=6 { t.Fatalf("got %d components, expected 5: %v", len(sizes)-1, sizes) }
	wantSizes:=[]int{0, 3, 2, 1, 1, 2}
	for i,s:=range wantSizes {
		if sizes[i]!=s { t.Errorf("size of label %d is %d, expected %d", i, sizes[i], s) }
	}
	if labels[0]!=1 || labels[5]!=1 || labels[4]!=2 || labels[12]!=3 { t.Errorf("labels %v", labels) }
	if labels[2]!=0 { t.Errorf("unset pixel labelled") }
}

func TestLargest(t *testing.T) {
	m:=parse(
		"##..###",
		"##..###",
		".......",
	)
	l, n:=m.Largest()
	if n!=2 { t.Errorf("got %d components", n) }
	if l.Count()!=6 || !l.At(5,1) || l.At(0,0) { t.Errorf("wrong component\n%s", l) }

	l, n=NewMask(3,3).Largest()
	if n!=0 || l.Count()!=0 { t.Errorf("empty mask gave %d components", n) }
}

func TestThreshold(t *testing.T) {
	m:=Threshold([]float32{1, 2, 3, 4}, 2, 2)
	if m.Height!=2 || m.Data[0] || m.Data[1] || !m.Data[2] || !m.Data[3] { t.Errorf("got %v", m.Data) }
}
