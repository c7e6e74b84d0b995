/*
Package elemid provides element identity for the scene document.

Every element created in the document (animation sets, controls, channels,
operators, connections) receives an opaque ID. Cross references that appear
in scene files are written as references of the form `element.attribute`,
e.g. `light.shadowAtten` or `roundness_rescale.value[0]`.

This package centralizes the formatting and parsing of both, so the
document, the scene loader and the scene writer agree on one canonical form.
*/
package elemid
