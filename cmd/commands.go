package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/luispater/matroska-tree-go/internal/cuecache"
	"github.com/luispater/matroska-tree-go/internal/logger"
	"github.com/luispater/matroska-tree-go/internal/probe"
	"github.com/luispater/matroska-tree-go/pkg/errors"
	"github.com/luispater/matroska-tree-go/pkg/languages"
	"github.com/luispater/matroska-tree-go/pkg/matroska"
	"github.com/luispater/matroska-tree-go/pkg/srt"
)

func openDemuxer(path string) (*os.File, *matroska.Demuxer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.NewFileError("cannot open input", err).WithContext("file_path", path)
	}
	d, err := matroska.NewDemuxer(file)
	if err != nil {
		file.Close()
		return nil, nil, errors.NewFormatError("cannot read Matroska header", err).WithContext("file_path", path)
	}
	logger.Debugf("Opened %s (%s), demuxer %s", path, d.DocType(), d.Key())
	return file, d, nil
}

// msToTicks converts milliseconds to TimestampScale units.
func msToTicks(ms int64, scale uint64) uint64 {
	if ms <= 0 {
		return 0
	}
	return uint64(ms) * 1000000 / scale
}

func trackTypeName(t uint64) string {
	switch t {
	case matroska.TrackTypeVideo:
		return "video"
	case matroska.TrackTypeAudio:
		return "audio"
	case matroska.TrackTypeSubtitle:
		return "subtitle"
	}
	return fmt.Sprintf("type %d", t)
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <FILE>",
		Short: "Print segment information and tracks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, d, err := openDemuxer(args[0])
			if err != nil {
				return err
			}
			defer file.Close()
			defer d.Close()

			info := d.Info()
			logger.Highlight(args[0])
			fmt.Printf("  DocType:         %s\n", d.DocType())
			if info.Title != "" {
				fmt.Printf("  Title:           %s\n", info.Title)
			}
			if info.Duration >= 0 {
				fmt.Printf("  Duration:        %s\n", d.Scale(int64(info.Duration)))
			}
			fmt.Printf("  Timestamp scale: %d ns\n", info.TimestampScale)
			fmt.Printf("  Muxing app:      %s\n", info.MuxingApp)
			fmt.Printf("  Writing app:     %s\n", info.WritingApp)
			if len(info.SegmentUID) > 0 {
				fmt.Printf("  Segment UID:     %s\n", hex.EncodeToString(info.SegmentUID))
			}
			fmt.Printf("  SeekHead:        %v\n", d.Segment().Indexed())
			fmt.Printf("  Cue points:      %d\n", len(d.Cues()))

			logger.Highlight(fmt.Sprintf("%d track(s)", len(d.Tracks())))
			for _, t := range d.Tracks() {
				line := fmt.Sprintf("  #%d %-8s %-16s %s", t.Number, trackTypeName(t.Type), t.CodecID, languages.Name(t.Language))
				if t.Name != "" {
					line += fmt.Sprintf(" name=%q", t.Name)
				}
				if t.Video != nil {
					line += fmt.Sprintf(" %dx%d", t.Video.PixelWidth, t.Video.PixelHeight)
				}
				if t.Audio != nil {
					line += fmt.Sprintf(" %.0f Hz %d ch", t.Audio.SamplingFrequency, t.Audio.Channels)
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func treeCmd() *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "tree <FILE>",
		Short: "Print the element tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return errors.NewFileError("cannot open input", err).WithContext("file_path", args[0])
			}
			defer file.Close()

			stat, err := file.Stat()
			if err != nil {
				return errors.NewFileError("cannot stat input", err).WithContext("file_path", args[0])
			}

			show := func(node *matroska.Tree, level int) bool {
				size := fmt.Sprintf("%d", node.Size)
				if node.Unknown() {
					size = fmt.Sprintf("unknown (%d)", node.DataSize())
				}
				fmt.Printf("%s%s @%d size=%s\n", strings.Repeat("  ", level), matroska.ElementName(node.ID), node.Offset, size)
				return depth <= 0 || level+1 < depth
			}

			// Top level: EBML header, then one or more Segments.
			for offset := int64(0); offset < stat.Size(); {
				if _, err = file.Seek(offset, io.SeekStart); err != nil {
					return errors.NewFileError("cannot seek", err).WithContext("offset", offset)
				}
				node, errTree := matroska.NewTree(file)
				if errTree != nil {
					return errors.NewFormatError("cannot read element", errTree).WithContext("offset", offset)
				}
				if err = node.Walk(0, show); err != nil {
					return errors.NewFormatError("cannot read element", err).WithContext("element", node.String())
				}
				offset = node.End()
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&depth, "depth", "d", 3, "Levels to print, 0 for all")
	return cmd
}

func loadCues(path string) ([]*matroska.Cue, uint64, error) {
	var cache *cuecache.Cache
	var key string
	if cfg.CacheFile != "" {
		stat, err := os.Stat(path)
		if err != nil {
			return nil, 0, errors.NewFileError("cannot stat input", err).WithContext("file_path", path)
		}
		if cache, err = cuecache.Open(cfg.CacheFile); err != nil {
			return nil, 0, err
		}
		defer cache.Close()

		key = cuecache.Key(path, stat)
		cues, scale, ok, errGet := cache.Get(key)
		if errGet != nil {
			logger.Warning(errGet.Error())
		} else if ok {
			logger.Debugf("Cue cache hit for %s", key)
			return cues, scale, nil
		}
	}

	file, d, err := openDemuxer(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()
	defer d.Close()

	cues, scale := d.Cues(), d.Info().TimestampScale
	if cache != nil {
		if err = cache.Put(key, scale, cues); err != nil {
			logger.Warning(err.Error())
		}
	}
	return cues, scale, nil
}

func cuesCmd() *cobra.Command {
	var at int64
	cmd := &cobra.Command{
		Use:   "cues <FILE>",
		Short: "Print the cue index, or the cue for one time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cues, scale, err := loadCues(args[0])
			if err != nil {
				return err
			}
			if len(cues) == 0 {
				logger.Warning("No cues in file")
				return nil
			}

			if cmd.Flags().Changed("at") {
				cue := matroska.Find(cues, msToTicks(at, scale))
				if cue == nil {
					logger.Warning(fmt.Sprintf("No cue at or before %dms", at))
					return nil
				}
				cues = []*matroska.Cue{cue}
			}
			for _, cue := range cues {
				fmt.Fprintf(cmd.OutOrStdout(), "time=%d track=%d cluster=@%d\n", cue.Time, cue.Track, cue.Position)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&at, "at", 0, "Only print the cue to start from for this time in ms")
	return cmd
}

func extractCmd() *cobra.Command {
	var number uint64
	var from int64
	var outDir, language string
	cmd := &cobra.Command{
		Use:   "extract <FILE>",
		Short: "Write one track to a raw file, or to SRT for text subtitles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("track") && language == "" && len(cfg.Tracks) > 0 {
				number = cfg.Tracks[0]
			}
			if number == 0 && language == "" {
				return errors.NewValidationError("no track selected", nil).WithContext("hint", "use --track, --language or MKVTREE_TRACKS")
			}

			file, d, err := openDemuxer(args[0])
			if err != nil {
				return err
			}
			defer file.Close()
			defer d.Close()

			if number == 0 {
				picked := selectTrack(d.Tracks(), language)
				if picked == nil {
					return errors.NewValidationError("no track in that language", nil).WithContext("language", language)
				}
				number = picked.Number
				logger.Info(fmt.Sprintf("Selected track %d (%s)", number, languages.Name(picked.Language)))
			}
			track, err := d.Track(number)
			if err != nil {
				return errors.NewValidationError("unknown track", err).WithContext("track", number)
			}
			start := msToTicks(from, d.Info().TimestampScale)
			if start > 0 {
				if err = d.Seek(track, start); err != nil {
					return errors.NewFormatError("cannot seek", err).WithContext("ms", from)
				}
			}

			// Text subtitles become SubRip, everything else is written raw.
			ext := "raw"
			textTrack := strings.HasPrefix(track.CodecID, "S_TEXT/")
			if textTrack {
				ext = "srt"
			}
			base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			outPath := filepath.Join(outDir, fmt.Sprintf("%s.track%d.%s", base, number, ext))
			out, err := os.Create(outPath)
			if err != nil {
				return errors.NewFileError("cannot create output", err).WithContext("file_path", outPath)
			}
			defer out.Close()

			var subs *srt.Writer
			if textTrack {
				subs = srt.NewWriter(out)
			}

			bar := logger.NewProgressBar(0, fmt.Sprintf("Track %d", number))
			defer bar.Stop()

			var written int64
			var packets int
			for {
				p, errPacket := d.ReadPacket(track)
				if errPacket == io.EOF {
					break
				}
				if errPacket != nil {
					return errors.NewFormatError("cannot read packet", errPacket).WithContext("track", number)
				}
				if p.Timestamp < int64(start) {
					continue
				}

				data := p.Data()
				if subs != nil {
					duration := time.Duration(-1)
					if p.Duration >= 0 {
						duration = d.Scale(p.Duration)
					}
					err = subs.Add(p.Time, duration, string(data))
				} else {
					_, err = out.Write(data)
				}
				if err != nil {
					return errors.NewFileError("cannot write output", err).WithContext("file_path", outPath)
				}
				written += int64(len(data))
				packets++
				bar.Update(written)
				bar.SetSuffix(p.Time.String())
			}
			if subs != nil {
				if err = subs.Flush(); err != nil {
					return errors.NewFileError("cannot write output", err).WithContext("file_path", outPath)
				}
			}
			bar.Stop()

			logger.Success(fmt.Sprintf("Wrote %d packets, %s to %s", packets, logger.FormatBytes(written), outPath))
			return nil
		},
	}
	cmd.Flags().Uint64VarP(&number, "track", "t", 0, "Track number (default: first of MKVTREE_TRACKS)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "Pick a track by language when --track is not given")
	cmd.Flags().Int64Var(&from, "from", 0, "Start time in ms")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	return cmd
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <FILE>",
		Short: "Cross-check the file with a streaming parser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stream, err := os.Open(args[0])
			if err != nil {
				return errors.NewFileError("cannot open input", err).WithContext("file_path", args[0])
			}
			counts, err := probe.Scan(stream)
			stream.Close()
			if err != nil {
				return err
			}
			logger.Debugf("Streaming parser: %d clusters, %d blocks", counts.Clusters, counts.Blocks)

			file, d, err := openDemuxer(args[0])
			if err != nil {
				return err
			}
			defer file.Close()
			defer d.Close()

			mismatches, err := probe.Compare(counts, d)
			if err != nil {
				return err
			}
			if len(mismatches) > 0 {
				for _, m := range mismatches {
					logger.Error(m.String())
				}
				return errors.NewFormatError("parsers disagree", nil).WithContext("mismatches", len(mismatches))
			}
			logger.Success(fmt.Sprintf("OK: %d tracks, %d clusters, %d blocks, %d cue points",
				counts.Tracks, counts.Clusters, counts.Blocks, counts.CuePoints))
			return nil
		},
	}
}

func remuxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remux <IN> <OUT>",
		Short: "Rewrite a file with fresh clusters, SeekHead and Cues",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, d, err := openDemuxer(args[0])
			if err != nil {
				return err
			}
			defer file.Close()
			defer d.Close()

			var total int64
			if stat, errStat := file.Stat(); errStat == nil {
				total = stat.Size()
			}

			out, err := os.Create(args[1])
			if err != nil {
				return errors.NewFileError("cannot create output", err).WithContext("file_path", args[1])
			}
			defer out.Close()

			srcScale := d.Info().TimestampScale
			info := &matroska.Info{
				TimestampScale: cfg.TimestampScale,
				Title:          d.Info().Title,
				SegmentUID:     d.Info().SegmentUID,
			}
			m, err := matroska.NewMuxer(out, info, d.Tracks(), matroska.MuxerOptions{
				ClusterSize:     cfg.ClusterSizeLimit,
				ClusterDuration: cfg.ClusterDurationTicks(),
				SequenceWidth:   cfg.SequenceWidth,
			})
			if err != nil {
				return errors.NewFileError("cannot start output", err).WithContext("file_path", args[1])
			}

			bar := logger.NewProgressBar(total, "Remuxing")
			err = interleave(d, func(p *matroska.Packet) error {
				ts := p.Timestamp
				if srcScale != cfg.TimestampScale {
					ts = int64(float64(ts) * float64(srcScale) / float64(cfg.TimestampScale))
				}
				if errWrite := m.WriteFrame(p.Track, ts, p.Keyframe, p.Data()); errWrite != nil {
					return errWrite
				}
				if pos, errPos := out.Seek(0, io.SeekCurrent); errPos == nil {
					bar.Update(pos)
				}
				return nil
			})
			if err == nil {
				err = m.Close()
			}
			bar.Stop()
			if err != nil {
				return errors.NewFormatError("remux failed", err).WithContext("file_path", args[1])
			}

			logger.Success(fmt.Sprintf("Wrote %s with %d cue points", args[1], len(m.Cues())))
			return nil
		},
	}
}

// interleave reads every track and hands packets to fn in timestamp order.
func interleave(d *matroska.Demuxer, fn func(p *matroska.Packet) error) error {
	tracks := d.Tracks()
	heads := make([]*matroska.Packet, len(tracks))
	done := make([]bool, len(tracks))

	for {
		next := -1
		for i, t := range tracks {
			if done[i] {
				continue
			}
			if heads[i] == nil {
				p, err := d.ReadPacket(t)
				if err == io.EOF {
					done[i] = true
					continue
				}
				if err != nil {
					return err
				}
				heads[i] = p
			}
			if next < 0 || heads[i].Timestamp < heads[next].Timestamp {
				next = i
			}
		}
		if next < 0 {
			return nil
		}
		if err := fn(heads[next]); err != nil {
			return err
		}
		heads[next] = nil
	}
}
