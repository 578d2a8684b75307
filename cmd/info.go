package cmd

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/johannesne/govital/vital"
)

// printInfo renders the human-readable file and track summary for --info.
func printInfo(f *vital.File, path string) error {
	fmt.Println("======= VITAL FILE INFO =======")
	fmt.Printf("Path:           %s\n", path)
	fmt.Printf("Size:           %.1f KB\n", float64(f.SummedDatalen)/1000.0)
	fmt.Printf("Format Ver.:    %d\n", f.Header.FormatVer)
	fmt.Printf("Devices (n):    %d\n", len(f.Devs))
	fmt.Printf("Tracks (n):     %d\n", len(f.TrackInfo))
	fmt.Println()

	rows := pterm.TableData{{"TRKID", "NAME", "UNIT", "TYPE", "SRATE", "DEVID"}}
	for _, ti := range f.TrackInfo {
		rows = append(rows, []string{
			strconv.Itoa(int(ti.TrkID)),
			ti.Name,
			ti.Unit,
			ti.RecType.String(),
			strconv.FormatFloat(float64(ti.SRate), 'g', -1, 32),
			strconv.Itoa(int(ti.DevID)),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
