package deps

// PipelineRequirements lists every program the nine stages invoke. All of them
// are required; a run refuses to start unless each one resolves.
func PipelineRequirements() []Requirement {
	return []Requirement{
		{
			Name:        "UMI-tools",
			Command:     "umi_tools",
			Description: "UMI extraction and UMI-aware deduplication",
			Stages:      []string{"extract_umi", "deduplicate"},
		},
		{
			Name:        "cutadapt",
			Command:     "cutadapt",
			Description: "Adapter clipping and length trimming",
			Stages:      []string{"clip_adapter", "trim_length"},
		},
		{
			Name:        "FASTX-Toolkit",
			Command:     "fastx_reverse_complement",
			Description: "Reverse complement of trimmed reads",
			Stages:      []string{"reverse_complement"},
		},
		{
			Name:        "Bowtie",
			Command:     "bowtie",
			Description: "Ribosomal filtering and genome alignment",
			Stages:      []string{"ribosomal_filter", "align_genome"},
		},
		{
			Name:        "SAMtools",
			Command:     "samtools",
			Description: "Sorting and indexing alignments",
			Stages:      []string{"convert_index", "deduplicate"},
		},
		{
			Name:        "BEDTools",
			Command:     "bedtools",
			Description: "Strand-split 5' coverage tracks",
			Stages:      []string{"coverage_track"},
		},
	}
}
