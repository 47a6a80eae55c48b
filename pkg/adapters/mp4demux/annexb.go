package mp4demux

var startCode = []byte{0, 0, 0, 1}

// paramSets joins SPS and PPS NAL units into one Annex B blob.
func paramSets(sps, pps [][]byte) []byte {
	var out []byte
	for _, nalu := range sps {
		out = append(out, startCode...)
		out = append(out, nalu...)
	}
	for _, nalu := range pps {
		out = append(out, startCode...)
		out = append(out, nalu...)
	}
	return out
}

// toAnnexB converts length-prefixed NAL units to start-code prefixed ones,
// putting the parameter sets in front of keyframes.
func toAnnexB(avcc, params []byte, keyframe bool) []byte {
	out := make([]byte, 0, len(avcc)+len(params)+16)
	if keyframe {
		out = append(out, params...)
	}

	for offset := 0; offset+4 <= len(avcc); {
		n := int(avcc[offset])<<24 | int(avcc[offset+1])<<16 | int(avcc[offset+2])<<8 | int(avcc[offset+3])
		offset += 4
		if n < 0 || offset+n > len(avcc) {
			break
		}
		out = append(out, startCode...)
		out = append(out, avcc[offset:offset+n]...)
		offset += n
	}
	return out
}
