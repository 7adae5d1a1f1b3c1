package pipeline

import "fmt"

// Stage names a step of the pipeline.
type Stage string

const (
	StageTransformSparse Stage = "transform_sparse"
	StageDiskImage       Stage = "disk_image"
	StagePartitions      Stage = "partitions"
	StageTempDir         Stage = "temp_dir"
	StageUboot           Stage = "uboot"
	StageVBMeta          Stage = "vbmeta"
	StageBootconfig      Stage = "bootconfig"
)

// StageError attributes a failure to the stage that produced it. Image is
// set for stages that work on one output image.
type StageError struct {
	Stage Stage
	Image string
	Err   error
}

func (e *StageError) Error() string {
	if e.Image != "" {
		return fmt.Sprintf("%s %s: %v", e.Stage, e.Image, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
