package stager

// StreamInfo describes one media format a video offers.
type StreamInfo struct {
	Itag      int
	MimeType  string
	Bitrate   int // bits per second
	AudioOnly bool
}

// SelectAudioStream picks the highest-bitrate audio-only stream from an
// enumerated format list. The second return is false when no audio-only
// stream exists. Ties keep the earliest entry, so selection is
// deterministic for a given list.
func SelectAudioStream(streams []StreamInfo) (StreamInfo, bool) {
	best := -1
	for i, s := range streams {
		if !s.AudioOnly {
			continue
		}
		if best == -1 || s.Bitrate > streams[best].Bitrate {
			best = i
		}
	}
	if best == -1 {
		return StreamInfo{}, false
	}
	return streams[best], true
}
