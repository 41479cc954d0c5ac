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

package plot

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/mlnoga/burstlight/internal/burst"
)

// Writes an HTML page charting score and peak significance per frame, with the best frame highlighted
func WriteTimeline(w io.Writer, frames []burst.Candidate, best burst.Candidate) error {
	bw:=bufio.NewWriter(w)
	bw.WriteString(timelineHeader)
	fmt.Fprintf(bw, "[  ['Frame','Score','Peak z',{role:'annotation'},{role:'style'}]\n")
	for _,c:=range frames {
		annotation, style:="null", "null"
		if c.Frame==best.Frame {
			annotation=fmt.Sprintf("'best (%s)'", c.Mode)
			style="'point { size: 8; fill-color: #d62728 }'"
		}
		fmt.Fprintf(bw, "  ,[%d,%s,%s,%s,%s]\n", c.Frame, jsNumber(c.Score), jsNumber(c.PeakZ), annotation, style)
	}
	fmt.Fprintf(bw, "]")
	fmt.Fprintf(bw, ";\n\nvar frameTimes = [")
	for i,c:=range frames {
		if i>0 { bw.WriteString(",") }
		fmt.Fprintf(bw, "%q", c.Time)
	}
	bw.WriteString("]")
	bw.WriteString(timelineTrailer)
	return bw.Flush()
}

// Writes the timeline to the named file
func WriteTimelineFile(fileName string, frames []burst.Candidate, best burst.Candidate) error {
	f, err:=os.Create(fileName)
	if err!=nil { return fmt.Errorf("error creating file %s: %w", fileName, err) }
	if err:=WriteTimeline(f, frames, best); err!=nil {
		f.Close()
		return err
	}
	return f.Close()
}

func jsNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) { return "null" }
	return fmt.Sprintf("%f", v)
}

const timelineHeader = `<html>
  <head>
    <script type="text/javascript" src="https://www.gstatic.com/charts/loader.js"></script>
  </head>
  <body>
    <table height="100%" width="100%"><tr height="100%">
      <td width="90%"><div id="timelineChart" style="width: 100%; height: 100%"></div></td>
      <td width="10%"><form><input type="checkbox" id="normalize" name="normalize" onchange="toggleNormalize()"><label for="normalize">Normalize</label></form></td>
    </tr></table>
  </body>
  <script type="text/javascript">
google.charts.load('current', {'packages':['corechart']});
google.charts.setOnLoadCallback(drawChart);

var dataArray =
`

const timelineTrailer = `;

var normDataArray=normalizeColumns(dataArray, [1, 2]);

var normalizeCheckbox=document.getElementById('normalize');

function getData() {
  return normalizeCheckbox.checked ? normDataArray : dataArray;
}

var options = {
  title: 'Burst score per frame',
  explorer: {
    axis: 'horizontal',
    action: ['dragToPan'],
    keepInBounds: true,
    maxZoomIn: 0.001,
    maxZoomOut: 1.0
  },
  crosshair: { trigger: 'both' },
  pointSize: 3,
  interpolateNulls: false,
  legend: { position: 'bottom' }
};

var chart;

function toggleNormalize() {
  data = google.visualization.arrayToDataTable(getData());
  for(let r=0; r<frameTimes.length; r++) {
    data.setFormattedValue(r, 0, r + ' ' + frameTimes[r]);
  }
  chart.draw(data, options);
}

function drawChart() {
  chart = new google.visualization.LineChart(document.getElementById('timelineChart'));
  toggleNormalize();
}

function normalizeColumns(d, cols) {
  var norm=d.map(row => row.slice());
  for(const c of cols) {
    var m=0;
    for(let r=1; r<d.length; r++) {
      if(d[r][c]!==null && Math.abs(d[r][c])>m) m=Math.abs(d[r][c]);
    }
    if(m===0) continue;
    for(let r=1; r<d.length; r++) {
      if(d[r][c]!==null) norm[r][c]=d[r][c]/m;
    }
  }
  return norm;
}

  </script>
</html>
`
