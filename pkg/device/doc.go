// Package device generates transformation-optics devices.
//
// Every device is described by a Topology: named vertices with physical and
// electromagnetic (EM) positions, convex cells, and the flat faces between
// them. Each cell carries a collineation mapping physical space to EM space;
// the outside is mapped by the identity. The surface on a face is the map
// M_outer⁻¹ M_inner, realised as an ideal lens, GCLA or glens. Cell maps are
// either supplied in closed form by the device or solved by chasing images
// outward-in across the cell adjacency graph.
package device
