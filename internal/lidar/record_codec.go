package lidar

import "github.com/haldane-gis/geocore/internal/bor"

// readRecord decodes one point record in format f from r, dispatching
// the bit-packed flag byte(s) on whether f uses the legacy 32-bit or
// extended 64-bit layout.
func readRecord(r *bor.Reader, f PointFormat) (Record, error) {
	rec := Record{Format: f}

	x, err := r.I32()
	if err != nil {
		return rec, err
	}
	y, err := r.I32()
	if err != nil {
		return rec, err
	}
	z, err := r.I32()
	if err != nil {
		return rec, err
	}
	rec.RawX, rec.RawY, rec.RawZ = x, y, z

	intensity, err := r.U16()
	if err != nil {
		return rec, err
	}
	rec.Intensity = intensity

	if f.Is64BitLayout() {
		flags1, err := r.U8()
		if err != nil {
			return rec, err
		}
		rec.ReturnNumber = flags1 & 0x0f
		rec.NumberOfReturns = (flags1 >> 4) & 0x0f

		flags2, err := r.U8()
		if err != nil {
			return rec, err
		}
		rec.ScannerChannel = (flags2 >> 4) & 0x03
		rec.ScanDirectionFlag = flags2&0x40 != 0
		rec.EdgeOfFlightLine = flags2&0x80 != 0
		classFlags := flags2 & 0x0f
		rec.Synthetic = classFlags&0x01 != 0
		rec.KeyPoint = classFlags&0x02 != 0
		rec.Withheld = classFlags&0x04 != 0
		rec.Overlap = classFlags&0x08 != 0

		class, err := r.U8()
		if err != nil {
			return rec, err
		}
		rec.Classification = class

		userData, err := r.U8()
		if err != nil {
			return rec, err
		}
		rec.UserData = userData
		scanAngle, err := r.I16()
		if err != nil {
			return rec, err
		}
		rec.ScanAngle = scanAngle
		pointSource, err := r.U16()
		if err != nil {
			return rec, err
		}
		rec.PointSourceID = pointSource
	} else {
		flags, err := r.U8()
		if err != nil {
			return rec, err
		}
		rec.ReturnNumber = flags & 0x07
		rec.NumberOfReturns = (flags >> 3) & 0x07
		rec.ScanDirectionFlag = flags&0x40 != 0
		rec.EdgeOfFlightLine = flags&0x80 != 0

		classByte, err := r.U8()
		if err != nil {
			return rec, err
		}
		rec.Classification = classByte & 0x1f
		rec.Synthetic = classByte&0x20 != 0
		rec.KeyPoint = classByte&0x40 != 0
		rec.Withheld = classByte&0x80 != 0

		scanAngleByte, err := r.I8()
		if err != nil {
			return rec, err
		}
		rec.ScanAngle = int16(scanAngleByte)
		userData, err := r.U8()
		if err != nil {
			return rec, err
		}
		rec.UserData = userData
		pointSource, err := r.U16()
		if err != nil {
			return rec, err
		}
		rec.PointSourceID = pointSource
	}

	if f.HasGPSTime() {
		t, err := r.F64()
		if err != nil {
			return rec, err
		}
		rec.GPSTime = t
	}
	if f.HasColor() {
		rr, err := r.U16()
		if err != nil {
			return rec, err
		}
		gg, err := r.U16()
		if err != nil {
			return rec, err
		}
		bb, err := r.U16()
		if err != nil {
			return rec, err
		}
		rec.R, rec.G, rec.B = rr, gg, bb
	}
	if f.HasNIR() {
		nir, err := r.U16()
		if err != nil {
			return rec, err
		}
		rec.NIR = nir
	}
	if f.HasWaveform() {
		wf, err := readWaveform(r)
		if err != nil {
			return rec, err
		}
		rec.Waveform = wf
	}
	return rec, nil
}

func readWaveform(r *bor.Reader) (Waveform, error) {
	var wf Waveform
	var err error
	wf.DescriptorIndex, err = r.U8()
	if err != nil {
		return wf, err
	}
	wf.ByteOffsetToData, err = r.U64()
	if err != nil {
		return wf, err
	}
	wf.PacketSizeInBytes, err = r.U32()
	if err != nil {
		return wf, err
	}
	wf.ReturnPointWaveLoc, err = r.F32()
	if err != nil {
		return wf, err
	}
	wf.Xt, err = r.F32()
	if err != nil {
		return wf, err
	}
	wf.Yt, err = r.F32()
	if err != nil {
		return wf, err
	}
	wf.Zt, err = r.F32()
	return wf, err
}

func writeRecord(w *bor.Writer, rec Record) {
	w.WriteI32(rec.RawX)
	w.WriteI32(rec.RawY)
	w.WriteI32(rec.RawZ)
	w.WriteU16(rec.Intensity)

	f := rec.Format
	if f.Is64BitLayout() {
		flags1 := (rec.ReturnNumber & 0x0f) | ((rec.NumberOfReturns & 0x0f) << 4)
		w.WriteU8(flags1)

		var flags2 uint8
		flags2 |= (rec.ScannerChannel & 0x03) << 4
		if rec.ScanDirectionFlag {
			flags2 |= 0x40
		}
		if rec.EdgeOfFlightLine {
			flags2 |= 0x80
		}
		if rec.Synthetic {
			flags2 |= 0x01
		}
		if rec.KeyPoint {
			flags2 |= 0x02
		}
		if rec.Withheld {
			flags2 |= 0x04
		}
		if rec.Overlap {
			flags2 |= 0x08
		}
		w.WriteU8(flags2)
		w.WriteU8(rec.Classification)
		w.WriteU8(rec.UserData)
		w.WriteI16(rec.ScanAngle)
		w.WriteU16(rec.PointSourceID)
	} else {
		var flags uint8
		flags |= rec.ReturnNumber & 0x07
		flags |= (rec.NumberOfReturns & 0x07) << 3
		if rec.ScanDirectionFlag {
			flags |= 0x40
		}
		if rec.EdgeOfFlightLine {
			flags |= 0x80
		}
		w.WriteU8(flags)

		var classByte uint8
		classByte = rec.Classification & 0x1f
		if rec.Synthetic {
			classByte |= 0x20
		}
		if rec.KeyPoint {
			classByte |= 0x40
		}
		if rec.Withheld {
			classByte |= 0x80
		}
		w.WriteU8(classByte)
		w.WriteI8(int8(rec.ScanAngle))
		w.WriteU8(rec.UserData)
		w.WriteU16(rec.PointSourceID)
	}

	if f.HasGPSTime() {
		w.WriteF64(rec.GPSTime)
	}
	if f.HasColor() {
		w.WriteU16(rec.R)
		w.WriteU16(rec.G)
		w.WriteU16(rec.B)
	}
	if f.HasNIR() {
		w.WriteU16(rec.NIR)
	}
	if f.HasWaveform() {
		writeWaveform(w, rec.Waveform)
	}
}

func writeWaveform(w *bor.Writer, wf Waveform) {
	w.WriteU8(wf.DescriptorIndex)
	w.WriteU64(wf.ByteOffsetToData)
	w.WriteU32(wf.PacketSizeInBytes)
	w.WriteF32(wf.ReturnPointWaveLoc)
	w.WriteF32(wf.Xt)
	w.WriteF32(wf.Yt)
	w.WriteF32(wf.Zt)
}
