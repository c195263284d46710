// Package report renders TTC results from a replay run as a static HTML
// page of go-echarts line charts, one line per tracked object.
package report
