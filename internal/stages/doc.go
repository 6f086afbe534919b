// Package stages declares the nine concrete steps that turn a raw reads file
// into a deduplicated alignment and a signed coverage track.
//
// Each stage names its delegate tools and builds their argument lists from
// the configuration and the artifacts recorded so far. Intermediates live
// under tmp_dir and are prefixed by the sample name.
package stages
