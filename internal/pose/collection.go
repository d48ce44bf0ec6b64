package pose

import (
	"errors"
	"sort"
)

// Report summarizes the landmark names that could not be used while
// collecting rows.
type Report struct {
	Rows      int            `json:"rows"`
	Untracked map[string]int `json:"untracked,omitempty"`
	Unknown   map[string]int `json:"unknown,omitempty"`
}

// Skipped returns the number of rows that were not placed into a frame.
func (r Report) Skipped() int {
	n := 0
	for _, c := range r.Untracked {
		n += c
	}
	for _, c := range r.Unknown {
		n += c
	}
	return n
}

func (r *Report) record(raw string, err error) {
	if errors.Is(err, ErrUntrackedLandmark) {
		if r.Untracked == nil {
			r.Untracked = make(map[string]int)
		}
		r.Untracked[raw]++
		return
	}
	if r.Unknown == nil {
		r.Unknown = make(map[string]int)
	}
	r.Unknown[raw]++
}

type frameKey struct {
	kickID  int64
	frameNo uint32
}

// Collect groups raw landmark rows into kicks and frames. Kicks are ordered by
// id and frames by frame number. Rows whose landmark name cannot be mapped to
// the joint vocabulary are left out and tallied in the returned Report.
func Collect(rows []Row) ([]Kick, Report) {
	report := Report{Rows: len(rows)}
	frames := make(map[frameKey]*Frame)
	kicks := make(map[int64]*Kick)

	for _, row := range rows {
		joint, err := ParseLandmarkName(row.LandmarkName)
		if err != nil {
			report.record(row.LandmarkName, err)
			continue
		}

		k, ok := kicks[row.KickID]
		if !ok {
			k = &Kick{KickID: row.KickID, VideoID: row.VideoID}
			kicks[row.KickID] = k
		}

		key := frameKey{kickID: row.KickID, frameNo: row.FrameNo}
		f, ok := frames[key]
		if !ok {
			f = &Frame{
				FrameID:   row.FrameID,
				KickID:    row.KickID,
				VideoID:   row.VideoID,
				FrameNo:   row.FrameNo,
				Landmarks: make(Landmarks),
			}
			frames[key] = f
		}
		f.Landmarks[joint] = Landmark{
			Joint:      joint,
			X:          row.X,
			Y:          row.Y,
			Z:          row.Z,
			Visibility: row.Visibility,
		}
	}

	for key, f := range frames {
		k := kicks[key.kickID]
		k.Frames = append(k.Frames, *f)
	}

	out := make([]Kick, 0, len(kicks))
	for _, k := range kicks {
		SortFrames(k.Frames)
		out = append(out, *k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].KickID < out[j].KickID })

	return out, report
}

// KickFromRows collects rows that all describe a single kick, as on the
// serving path where one request carries one kick. Rows are merged by frame
// number regardless of their kick id. The returned kick has no frames when no
// row could be mapped.
func KickFromRows(rows []Row) (Kick, Report) {
	merged := make([]Row, len(rows))
	copy(merged, rows)

	var kick Kick
	if len(rows) > 0 {
		kick.KickID = rows[0].KickID
		kick.VideoID = rows[0].VideoID
	}
	for i := range merged {
		merged[i].KickID = kick.KickID
	}

	kicks, report := Collect(merged)
	if len(kicks) == 1 {
		kick.Frames = kicks[0].Frames
	}
	return kick, report
}

// SortFrames orders frames by frame number, ascending.
func SortFrames(frames []Frame) {
	sort.SliceStable(frames, func(i, j int) bool { return frames[i].FrameNo < frames[j].FrameNo })
}
