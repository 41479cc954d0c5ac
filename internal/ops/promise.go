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

package ops

import (
	"errors"

	"github.com/mlnoga/burstlight/internal/fits"
)

// A promise for a FITS image. Returns a materialized image, or an error
type Promise func() (f *fits.Image, err error)

// Materializes all promises with given concurrency limit. Output order matches input order.
// Failed promises leave a nil entry which is removed, and their errors are joined
func MaterializeAll(ins []Promise, maxThreads int) (outs []*fits.Image, err error) {
	if len(ins)==0 { return nil, nil }
	if maxThreads<1 { maxThreads=1 }
	outs=make([]*fits.Image, len(ins))
	errs:=make([]error, len(ins))
	limiter:=make(chan bool, maxThreads)
	for i, in := range(ins) {
		limiter <- true
		go func(i int, theIn Promise) {
			defer func() { <-limiter }()
			outs[i], errs[i]=theIn() // materialize the promise
		}(i, in)
	}
	for i:=0; i<cap(limiter); i++ {  // wait for goroutines to finish
		limiter <- true
	}
	return RemoveNils(outs), errors.Join(errs...)
}

// Remove nils from an array of fits.Images, editing the underlying array in place
func RemoveNils(images []*fits.Image) ([]*fits.Image) {
	o:=0
	for i:=0; i<len(images); i+=1 {
		if images[i]!=nil {
			images[o]=images[i]
			o+=1
		}
	}
	for i:=o; i<len(images); i++ {
		images[i]=nil
	}
	return images[:o]
}
