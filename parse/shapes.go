package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"baltictransit.dev/schedule/model"
	"baltictransit.dev/schedule/storage"
)

type ShapeCSV struct {
	ShapeID    string  `csv:"shape_id"`
	Lat        float64 `csv:"shape_pt_lat"`
	Lon        float64 `csv:"shape_pt_lon"`
	Sequence   uint32  `csv:"shape_pt_sequence"`
	// DistTraveled float64 `csv:"shape_dist_traveled"`
}

// ParseShapes streams shapes.txt through the writer. shapes.txt can be
// bigger than stop_times.txt for feeds with detailed geometry, so it
// gets the same streaming treatment.
func ParseShapes(writer storage.FeedWriter, data io.Reader) error {
	i := -1
	err := gocsv.UnmarshalToCallbackWithError(data, func(s *ShapeCSV) error {
		i += 1
		if s.ShapeID == "" {
			return fmt.Errorf("missing shape_id (row %d)", i+1)
		}

		err := writer.WriteShapePoint(&model.ShapePoint{
			ShapeID:  s.ShapeID,
			Lat:      s.Lat,
			Lon:      s.Lon,
			Sequence: s.Sequence,
		})
		if err != nil {
			return errors.Wrapf(err, "writing shape point (row %d)", i+1)
		}

		return nil
	})
	if err != nil {
		return errors.Wrap(err, "unmarshaling shapes csv")
	}

	return nil
}
