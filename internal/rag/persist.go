package rag

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
)

// 集合目录下的三个产物：向量索引、分块元数据、清单
// 清单最后写，作为"写入完整"的标记
const (
	vectorsFileName  = "vectors.bin"
	chunksFileName   = "chunks.json"
	manifestFileName = "manifest.json"
)

const (
	vectorsMagic   uint32 = 0x43545831 // "CTX1"
	vectorsVersion uint32 = 1
)

// manifest 集合清单，记录产物名单与校验和
// 存在性与完整性检查只需读这一个小文件
type manifest struct {
	Version    int              `json:"version"`
	Dimensions int              `json:"dimensions"`
	Count      int              `json:"count"`
	Artifacts  []artifactRecord `json:"artifacts"`
}

type artifactRecord struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Checksum uint32 `json:"checksum"`
}

// writeVectorsFile 向量文件布局：
//
//	magic(u32) version(u32) dimensions(u32) count(u32) [count*dim]float32，全部小端
//
// 返回写入字节数与CRC32校验和
func writeVectorsFile(path string, dim int, vectors [][]float32) (int64, uint32, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	crc := crc32.NewIEEE()
	counter := &countingWriter{}
	w := bufio.NewWriter(io.MultiWriter(f, crc, counter))

	header := []uint32{vectorsMagic, vectorsVersion, uint32(dim), uint32(len(vectors))}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return 0, 0, err
		}
	}
	buf := make([]byte, 4)
	for _, vec := range vectors {
		for _, v := range vec {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			if _, err := w.Write(buf); err != nil {
				return 0, 0, err
			}
		}
	}
	if err := w.Flush(); err != nil {
		return 0, 0, err
	}
	if err := f.Sync(); err != nil {
		return 0, 0, err
	}
	return counter.n, crc.Sum32(), nil
}

// readVectorsFile 读回向量文件并校验结构
func readVectorsFile(path string) (int, [][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic, version, dim, count uint32
	for _, dst := range []*uint32{&magic, &version, &dim, &count} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return 0, nil, fmt.Errorf("read vector file header: %w", err)
		}
	}
	if magic != vectorsMagic {
		return 0, nil, fmt.Errorf("bad magic number 0x%08x", magic)
	}
	if version != vectorsVersion {
		return 0, nil, fmt.Errorf("unsupported vector file version %d", version)
	}

	vectors := make([][]float32, count)
	buf := make([]byte, 4*int(dim))
	for i := range vectors {
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, nil, fmt.Errorf("vector data truncated at record %d: %w", i, err)
		}
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*j:]))
		}
		vectors[i] = vec
	}
	return int(dim), vectors, nil
}

// writeChunksFile 分块元数据存为JSON数组，顺序与向量文件对齐
func writeChunksFile(path string, chunks []Chunk) (int64, uint32, error) {
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return 0, 0, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, 0, err
	}
	return int64(len(data)), crc32.ChecksumIEEE(data), nil
}

func readChunksFile(path string) ([]Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var chunks []Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("parse chunk metadata: %w", err)
	}
	return chunks, nil
}

func writeManifestFile(path string, m manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readManifestFile(path string) (manifest, error) {
	var m manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
