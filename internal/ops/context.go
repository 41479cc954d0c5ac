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
	"log/slog"
	"runtime"

	"github.com/klauspost/cpuid"
	"github.com/pbnjay/memory"
)

// An execution context for loading and processing image cubes
type Context struct {
	Log           *slog.Logger
	MemoryMB      int          // memory.TotalMemory()/1024/1024
	CubeMemoryMB  int          // MemoryMB*7/10, budget for an in-memory cube and its working copies
	MaxThreads    int          `json:"maxThreads"`
}

// Creates a new context. maxThreads<=0 selects the number of logical cores
func NewContext(log *slog.Logger, maxThreads int) *Context {
	memoryMB:=int(memory.TotalMemory()/1024/1024)
	if maxThreads<=0 {
		maxThreads=cpuid.CPU.LogicalCores
		if maxThreads<=0 { maxThreads=runtime.GOMAXPROCS(0) }
	}
	return &Context{
		Log          : log,
		MemoryMB     : memoryMB,
		CubeMemoryMB : memoryMB*7/10,
		MaxThreads   : maxThreads,
	}
}
