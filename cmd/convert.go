package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/johannesne/govital/vital"
)

// runConvert decodes the input and either prints the summary (--info) or
// exports the selected tracks.
func runConvert(path string) error {
	var sel vital.Selection
	if !infoOnly {
		// Validate the selection before the (possibly large) decode.
		var err error
		if sel, err = makeSelection(saveAll, trkIDs, names); err != nil {
			return err
		}
	}

	file, err := vital.Open(path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}

	if infoOnly {
		return printInfo(file, path)
	}
	return file.SaveTracks(sel, viper.GetString("outdir"), viper.GetBool("gzip"))
}

// makeSelection builds the export selection, requiring exactly one of
// --saveall, --trkid and --name.
func makeSelection(all bool, ids []int, trackNames []string) (vital.Selection, error) {
	given := 0
	if all {
		given++
	}
	if len(ids) > 0 {
		given++
	}
	if len(trackNames) > 0 {
		given++
	}
	if given != 1 {
		return vital.Selection{}, errors.New("expected exactly one of --saveall, --trkid or --name")
	}
	return vital.Selection{All: all, TrkIDs: ids, Names: trackNames}, nil
}
