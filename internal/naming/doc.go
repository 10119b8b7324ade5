// Package naming parses benchmark asset filenames into their encoded
// properties and builds the reference strings and capture paths that key
// statistics rows.
//
// Asset names follow two shapes:
//
//	video: <clip>_<W>x<H>_<fps>fps_<kbps>kbps_<codec>.<ext>
//	audio: <clip>_<rate>hz_<ch>ch_<kbps>kbps_<codec>_<secs>sec.<ext>
//
// Raw intermediates (decode_hr.yuv, decode_audio.raw) are recognised by
// extension. Anything else parses as [KindUnknown].
package naming
