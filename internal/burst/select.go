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

package burst

import "sort"

// Selects the best candidate over all frames: bursts before fallbacks, then by descending score.
// Ties keep frame order. Fails with ErrEmptyInput for an empty list
func SelectBest(cands []Candidate) (Candidate, error) {
	if len(cands)==0 { return Candidate{}, ErrEmptyInput }
	sorted:=append([]Candidate(nil), cands...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj:=sorted[i].Mode.rank(), sorted[j].Mode.rank()
		if ri!=rj { return ri<rj }
		return sorted[i].Score>sorted[j].Score
	})
	return sorted[0], nil
}
