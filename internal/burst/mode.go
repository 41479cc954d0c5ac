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

import "fmt"

// How a frame's candidate was obtained. Lower values rank better
type Mode int

const (
	ModeBurst          Mode = iota // a significant local maximum passed all checks
	ModeFallback                   // no valid peak, maximum high-pass pixel inside the mask
	ModeFallbackCenter             // no finite pixel inside the mask, image centre
)

var modeNames=[...]string{"burst", "fallback", "fallback-center"}

func (m Mode) String() string {
	if m<0 || int(m)>=len(modeNames) { return fmt.Sprintf("Mode(%d)", int(m)) }
	return modeNames[m]
}

func (m Mode) MarshalText() ([]byte, error) {
	if m<0 || int(m)>=len(modeNames) { return nil, fmt.Errorf("invalid mode %d", int(m)) }
	return []byte(modeNames[m]), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	for i,n:=range modeNames {
		if n==string(text) {
			*m=Mode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown mode %q", string(text))
}

// Rank used for best frame selection: bursts before any fallback
func (m Mode) rank() int {
	if m==ModeBurst { return 0 }
	return 1
}
