/*
go-mono3d decodes the raw output tensors of a CenterNet style monocular 3D
object detector into oriented 3D bounding boxes.

The root package provides a read only view over the quantized output tensors
produced by an NPU inference runtime, handling per channel fixed point shifts,
affine quantization, FP16 buffers and padding aligned strides.  Model
inference itself happens elsewhere, the tensors are handed to the
postprocess package which performs heat map peak extraction, inverse camera
projection, rotation decoding, corner projection and both image plane and
bird's eye view Non-Maximum Suppression.

These routines were written for an indoor robot model detecting charging
bases, trash cans and slippers, but all geometry and thresholds are taken from
configuration.

See example code and usage in the example subdirectory.
*/
package mono3d
