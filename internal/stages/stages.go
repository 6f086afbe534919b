package stages

import (
	"context"
	"path/filepath"
	"strconv"

	"promap/internal/bedgraph"
	"promap/internal/config"
	"promap/internal/gateway"
	"promap/internal/sample"
	"promap/internal/stage"
)

// Stage names, in execution order.
const (
	ExtractUMI        = "extract_umi"
	ClipAdapter       = "clip_adapter"
	TrimLength        = "trim_length"
	ReverseComplement = "reverse_complement"
	RibosomalFilter   = "ribosomal_filter"
	AlignGenome       = "align_genome"
	ConvertIndex      = "convert_index"
	Deduplicate       = "deduplicate"
	CoverageTrack     = "coverage_track"
)

// Pipeline returns the nine stages in execution order.
func Pipeline() []stage.Stage {
	return []stage.Stage{
		{
			Name:        ExtractUMI,
			Ordinal:     1,
			Description: "move the UMI barcode from the read into its name",
			Tools:       []string{"umi_tools"},
			Consumes:    sample.RoleReads,
			Produces:    sample.RoleUMIExtracted,
			Output:      tmpPath("_umi.fastq"),
			Commands:    extractUMI,
		},
		{
			Name:        ClipAdapter,
			Ordinal:     2,
			Description: "clip the 3' adapter and drop short reads",
			Tools:       []string{"cutadapt"},
			Consumes:    sample.RoleUMIExtracted,
			Produces:    sample.RoleClipped,
			Output:      tmpPath("_clipped.fastq"),
			Commands:    clipAdapter,
		},
		{
			Name:        TrimLength,
			Ordinal:     3,
			Description: "trim reads to the maximum length",
			Tools:       []string{"cutadapt"},
			Consumes:    sample.RoleClipped,
			Produces:    sample.RoleTrimmed,
			Output:      tmpPath("_trimmed.fastq"),
			Commands:    trimLength,
		},
		{
			Name:        ReverseComplement,
			Ordinal:     4,
			Description: "reverse complement the trimmed reads",
			Tools:       []string{"fastx_reverse_complement"},
			Consumes:    sample.RoleTrimmed,
			Produces:    sample.RoleReverseComplemented,
			Output:      tmpPath("_revcomp.fastq"),
			Commands:    reverseComplement,
		},
		{
			Name:        RibosomalFilter,
			Ordinal:     5,
			Description: "align to rDNA and keep the reads that do not map",
			Tools:       []string{"bowtie"},
			Consumes:    sample.RoleReverseComplemented,
			Produces:    sample.RoleNotRibosomal,
			Output:      tmpPath("_norrna.fastq"),
			Artifacts:   single(RibosomalAlignmentPath),
			Commands:    ribosomalFilter,
		},
		{
			Name:        AlignGenome,
			Ordinal:     6,
			Description: "align uniquely to the genome",
			Tools:       []string{"bowtie"},
			Consumes:    sample.RoleNotRibosomal,
			Produces:    sample.RoleAligned,
			Output:      tmpPath(".sam"),
			Artifacts:   single(UnmappedReadsPath),
			Commands:    alignGenome,
		},
		{
			Name:        ConvertIndex,
			Ordinal:     7,
			Description: "sort the alignment into an indexed BAM",
			Tools:       []string{"samtools"},
			Consumes:    sample.RoleAligned,
			Produces:    sample.RoleSortedAlignment,
			Output:      tmpPath("_sorted.bam"),
			Commands:    convertIndex,
		},
		{
			Name:        Deduplicate,
			Ordinal:     8,
			Description: "collapse PCR duplicates by UMI and index the result",
			Tools:       []string{"umi_tools", "samtools"},
			Consumes:    sample.RoleSortedAlignment,
			Produces:    sample.RoleDeduplicated,
			Output:      DeduplicatedPath,
			Artifacts:   single(DedupStatsPrefix),
			Commands:    deduplicate,
		},
		{
			Name:        CoverageTrack,
			Ordinal:     9,
			Description: "5' coverage per strand merged into one signed track",
			Tools:       []string{"bedtools"},
			Consumes:    sample.RoleDeduplicated,
			Produces:    sample.RoleCoverageTrack,
			Output:      CoverageTrackPath,
			Commands:    coverageTrack,
			Finalize:    mergeStrands,
		},
	}
}

// ByName returns the stage called name.
func ByName(name string) (stage.Stage, bool) {
	for _, st := range Pipeline() {
		if st.Name == name {
			return st, true
		}
	}
	return stage.Stage{}, false
}

func tmpPath(suffix string) stage.PathFunc {
	return func(cfg *config.Config, s sample.Sample) string {
		return filepath.Join(cfg.TmpDir, s.Prefix+suffix)
	}
}

func single(fn stage.PathFunc) func(*config.Config, sample.Sample) []string {
	return func(cfg *config.Config, s sample.Sample) []string {
		return []string{fn(cfg, s)}
	}
}

// RibosomalAlignmentPath is the rDNA alignment kept for inspection.
func RibosomalAlignmentPath(cfg *config.Config, s sample.Sample) string {
	return filepath.Join(cfg.AlignRibosomeDir, s.Prefix+"_rdna.sam")
}

// UnmappedReadsPath holds reads that did not align to the genome.
func UnmappedReadsPath(cfg *config.Config, s sample.Sample) string {
	return filepath.Join(cfg.AlignUnmappedDir, s.Prefix+"_unmapped.fastq")
}

// DeduplicatedPath is the published BAM.
func DeduplicatedPath(cfg *config.Config, s sample.Sample) string {
	return filepath.Join(cfg.AlignBAMDir, s.Prefix+".bam")
}

// DedupStatsPrefix is the --output-stats prefix for UMI deduplication.
func DedupStatsPrefix(cfg *config.Config, s sample.Sample) string {
	return filepath.Join(cfg.TmpDir, s.Prefix+"_dedup")
}

// CoverageTrackPath is the published signed coverage track.
func CoverageTrackPath(cfg *config.Config, s sample.Sample) string {
	return filepath.Join(cfg.AlignBedgraphDir, s.Prefix+".bedgraph.gz")
}

func strandPaths(cfg *config.Config, s sample.Sample) (plus, minus string) {
	return filepath.Join(cfg.TmpDir, s.Prefix+"_plus.bedgraph"), filepath.Join(cfg.TmpDir, s.Prefix+"_minus.bedgraph")
}

func extractUMI(cfg *config.Config, _ sample.Sample, input, output string) []gateway.Invocation {
	return []gateway.Invocation{{
		Command: "umi_tools",
		Args: []string{
			"extract",
			"--bc-pattern=" + cfg.UMIPattern,
			"--stdin=" + input,
			"--stdout=" + output,
		},
		Outputs: []string{output},
	}}
}

func clipAdapter(cfg *config.Config, _ sample.Sample, input, output string) []gateway.Invocation {
	args := make([]string, 0, 8)
	if cfg.Adapter != "" {
		args = append(args, "-a", cfg.Adapter)
	}
	args = append(args, "-m", strconv.Itoa(cfg.ReadLengthMin), "-o", output, input)
	return []gateway.Invocation{{Command: "cutadapt", Args: args, Outputs: []string{output}}}
}

func trimLength(cfg *config.Config, _ sample.Sample, input, output string) []gateway.Invocation {
	return []gateway.Invocation{{
		Command: "cutadapt",
		Args:    []string{"-l", strconv.Itoa(cfg.ReadLengthMax), "-o", output, input},
		Outputs: []string{output},
	}}
}

func reverseComplement(_ *config.Config, _ sample.Sample, input, output string) []gateway.Invocation {
	return []gateway.Invocation{{
		Command: "fastx_reverse_complement",
		Args:    []string{"-Q33"},
		Stdin:   input,
		Stdout:  output,
	}}
}

func ribosomalFilter(cfg *config.Config, s sample.Sample, input, output string) []gateway.Invocation {
	sam := RibosomalAlignmentPath(cfg, s)
	return []gateway.Invocation{{
		Command: "bowtie",
		Args: []string{
			"-p", strconv.Itoa(cfg.CPUs),
			"-S",
			"--un", output,
			cfg.BowtieRDNAPrefix,
			input,
			sam,
		},
		Outputs: []string{output, sam},
	}}
}

func alignGenome(cfg *config.Config, s sample.Sample, input, output string) []gateway.Invocation {
	unmapped := UnmappedReadsPath(cfg, s)
	return []gateway.Invocation{{
		Command: "bowtie",
		Args: []string{
			"-p", strconv.Itoa(cfg.CPUs),
			"-S",
			"-m", "1",
			"--best", "--strata",
			"--un", unmapped,
			cfg.BowtieGenomePrefix,
			input,
			output,
		},
		Outputs: []string{output, unmapped},
	}}
}

func convertIndex(cfg *config.Config, _ sample.Sample, input, output string) []gateway.Invocation {
	return []gateway.Invocation{
		{
			Command: "samtools",
			Args:    []string{"sort", "-@", strconv.Itoa(cfg.CPUs), "-o", output, input},
			Outputs: []string{output},
		},
		indexBAM(output),
	}
}

func deduplicate(cfg *config.Config, s sample.Sample, input, output string) []gateway.Invocation {
	return []gateway.Invocation{
		{
			Command: "umi_tools",
			Args: []string{
				"dedup",
				"--stdin=" + input,
				"--stdout=" + output,
				"--output-stats=" + DedupStatsPrefix(cfg, s),
			},
			Outputs: []string{output},
		},
		indexBAM(output),
	}
}

func indexBAM(bam string) gateway.Invocation {
	return gateway.Invocation{
		Command: "samtools",
		Args:    []string{"index", bam},
		Outputs: []string{bam + ".bai"},
	}
}

func coverageTrack(cfg *config.Config, s sample.Sample, input, _ string) []gateway.Invocation {
	plus, minus := strandPaths(cfg, s)
	genomecov := func(strand, out string) gateway.Invocation {
		return gateway.Invocation{
			Command: "bedtools",
			Args:    []string{"genomecov", "-ibam", input, "-bg", "-5", "-strand", strand},
			Stdout:  out,
		}
	}
	return []gateway.Invocation{genomecov("+", plus), genomecov("-", minus)}
}

func mergeStrands(_ context.Context, env stage.Env, s sample.Sample, output string) error {
	plus, minus := strandPaths(env.Config, s)
	return bedgraph.Merge(plus, minus, output)
}
