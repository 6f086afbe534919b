package config

import "runtime"

const (
	// DefaultConfigName is the file read from the working directory when no
	// explicit configuration path is given.
	DefaultConfigName = "promap.cfg"

	defaultTmpDir           = "/tmp"
	defaultUMIPattern       = "NNNNNN"
	defaultReadLengthMin    = 25
	defaultReadLengthMax    = 36
	defaultLogDir           = "log"
	defaultReadsDir         = "fastq"
	defaultAlignRibosomeDir = "sam_rdna"
	defaultAlignUnmappedDir = "fastq_unmapped"
	defaultAlignBAMDir      = "bam"
	defaultAlignBedgraphDir = "bedgraph"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults. The genome and
// ribosomal reference prefixes have no default; stages that need them fail when
// they are left empty.
func Default() Config {
	return Config{
		CPUs:             runtime.NumCPU(),
		TmpDir:           defaultTmpDir,
		UMIPattern:       defaultUMIPattern,
		ReadLengthMin:    defaultReadLengthMin,
		ReadLengthMax:    defaultReadLengthMax,
		LogDir:           defaultLogDir,
		ReadsDir:         defaultReadsDir,
		AlignRibosomeDir: defaultAlignRibosomeDir,
		AlignUnmappedDir: defaultAlignUnmappedDir,
		AlignBAMDir:      defaultAlignBAMDir,
		AlignBedgraphDir: defaultAlignBedgraphDir,
		LogFormat:        defaultLogFormat,
		LogLevel:         defaultLogLevel,
	}
}
