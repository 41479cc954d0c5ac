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

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Licensing information
const legal=`Burstlight is Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

The binary version of this program uses several open source libraries and components, which come with their own licensing terms:

| Library                                                                                        | License type                            | Usage    |
|------------------------------------------------------------------------------------------------|-----------------------------------------|----------|
| [github.com/cenkalti/backoff](https://github.com/cenkalti/backoff)                             | MIT License                             |          |
| [github.com/fogleman/gg](https://github.com/fogleman/gg)                                       | MIT License                             |          |
| [github.com/gin-gonic/gin](https://github.com/gin-gonic/gin)                                   | MIT License                             |          |
| [github.com/golang/freetype](https://github.com/golang/freetype)                               | FreeType License                        | indirect |
| [github.com/google/uuid](https://github.com/google/uuid)                                       | BSD 3-Clause                            |          |
| [github.com/gorilla/websocket](https://github.com/gorilla/websocket)                           | BSD 2-Clause                            |          |
| [github.com/klauspost/cpuid](https://github.com/klauspost/cpuid)                               | MIT License                             |          |
| [github.com/lucasb-eyer/go-colorful](https://github.com/lucasb-eyer/go-colorful)               | MIT License                             |          |
| [github.com/patrickmn/go-cache](https://github.com/patrickmn/go-cache)                         | MIT License                             |          |
| [github.com/pbnjay/memory](https://github.com/pbnjay/memory)                                   | BSD 3-Clause "New" or "Revised" License |          |
| [github.com/prometheus/client_golang](https://github.com/prometheus/client_golang)             | Apache 2.0 License                      |          |
| [github.com/sj14/astral](https://github.com/sj14/astral)                                       | MIT License                             |          |
| [github.com/soniakeys/meeus](https://github.com/soniakeys/meeus)                               | MIT License                             |          |
| [github.com/soniakeys/unit](https://github.com/soniakeys/unit)                                 | MIT License                             |          |
| [github.com/spf13/cobra](https://github.com/spf13/cobra)                                       | Apache 2.0 License                      |          |
| [github.com/spf13/viper](https://github.com/spf13/viper)                                       | MIT License                             |          |
| [github.com/valyala/fastrand](https://github.com/valyala/fastrand)                             | MIT License                             |          |
| [gonum.org/v1/gonum](https://github.com/gonum/gonum)                                           | BSD 3-Clause                            |          |
| [golang.org/x/image](https://golang.org/x/image)                                               | BSD 3-Clause                            |          |
| [golang.org/x/sys](https://golang.org/x/sys)                                                   | BSD 3-Clause                            | indirect |
| [gopkg.in/natefinch/lumberjack.v2](https://github.com/natefinch/lumberjack)                    | MIT License                             |          |
| [gopkg.in/yaml.v3](https://github.com/go-yaml/yaml)                                            | MIT and Apache 2.0 License              |          |

The self-calibration command runs external programs which are not part of this binary:
wsclean (GPL 3.0) and mwa_hyperdrive (MPL 2.0).
`

func legalCommand(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "legal",
		Short: "Show license and attribution information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(w, legal)
		},
	}
}
