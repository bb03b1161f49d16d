// Package toolchain locates the AliceVision installation at run time and
// builds the explicit environment each stage subprocess receives.
package toolchain
