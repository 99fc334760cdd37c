// Package media implements the video view: a navigable frame that loads an
// HLS playlist and hosts the player element.
package media

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/grafov/m3u8"
)

// ErrNotPlaylist is returned when input is not an HLS media playlist
var ErrNotPlaylist = errors.New("not an HLS playlist")

var (
	byteOrderMark = []byte("\xef\xbb\xbf")
	header        = []byte("#EXTM3U")
)

// Segment is one media segment of a playlist
type Segment struct {
	Sequence int
	Duration time.Duration
	Title    string
	URI      string
}

// Playlist is the subset of an HLS media playlist the console shows
type Playlist struct {
	Version        int
	TargetDuration time.Duration
	MediaSequence  int
	Segments       []Segment
	Ended          bool
}

// Duration is the total duration of the listed segments
func (p *Playlist) Duration() time.Duration {
	var total time.Duration
	for _, s := range p.Segments {
		total += s.Duration
	}
	return total
}

// ParsePlaylist reads an HLS media playlist. A leading byte order mark is
// skipped.
func ParsePlaylist(r io.Reader) (*Playlist, error) {
	br := bufio.NewReader(r)
	if bom, _ := br.Peek(len(byteOrderMark)); bytes.Equal(bom, byteOrderMark) {
		br.Discard(len(byteOrderMark))
	}
	if h, _ := br.Peek(len(header)); !bytes.Equal(h, header) {
		return nil, ErrNotPlaylist
	}

	decoded, listType, err := m3u8.DecodeFrom(br, true)
	if err != nil {
		return nil, fmt.Errorf("decode playlist: %w", err)
	}
	if listType != m3u8.MEDIA {
		return nil, fmt.Errorf("%w: master playlist", ErrNotPlaylist)
	}
	return fromMedia(decoded.(*m3u8.MediaPlaylist)), nil
}

func fromMedia(mp *m3u8.MediaPlaylist) *Playlist {
	p := &Playlist{
		Version:        int(mp.Version()),
		TargetDuration: time.Duration(mp.TargetDuration * float64(time.Second)),
		MediaSequence:  int(mp.SeqNo),
		Ended:          mp.Closed,
	}

	// Segments is a ring buffer; only the first Count entries are set
	n := int(mp.Count())
	for i, s := range mp.Segments {
		if i >= n || s == nil {
			break
		}
		p.Segments = append(p.Segments, Segment{
			Sequence: p.MediaSequence + i,
			Duration: time.Duration(s.Duration * float64(time.Second)),
			Title:    s.Title,
			URI:      s.URI,
		})
	}
	return p
}
