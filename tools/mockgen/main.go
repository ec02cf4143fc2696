package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

// Config represents the mock project configuration
type Config struct {
	OutputDir     string
	NumDirs       int
	FilesPerDir   int
	ImportDensity float64 // 每个文件平均引用几个其他模块
	ExternalRatio float64 // 引用中第三方包的比例
	Seed          int64
}

// FileInfo represents a source file in the mock project
type FileInfo struct {
	Dir   string // 相对输出目录，如 "src/layer3"
	Name  string // 不含扩展名，如 "module7" 或 "index"
	Ext   string
	Layer int
}

// RelPath returns the file path relative to the project root
func (f FileInfo) RelPath() string {
	return filepath.ToSlash(filepath.Join(f.Dir, f.Name+f.Ext))
}

var externalPackages = []string{
	"react", "lodash", "axios", "dayjs", "zod", "express", "@tanstack/react-query", "uuid",
}

var extensions = []string{".js", ".ts", ".jsx", ".tsx"}

func main() {
	cfg := Config{}
	flag.StringVar(&cfg.OutputDir, "o", "./mock-project", "输出目录")
	flag.IntVar(&cfg.NumDirs, "dirs", 20, "目录数量（每个目录一层）")
	flag.IntVar(&cfg.FilesPerDir, "files", 50, "每个目录的文件数量")
	flag.Float64Var(&cfg.ImportDensity, "density", 3.0, "平均每个文件引用几个其他模块")
	flag.Float64Var(&cfg.ExternalRatio, "external", 0.2, "引用中第三方包的比例")
	flag.Int64Var(&cfg.Seed, "seed", 1, "随机种子")
	flag.Parse()

	fmt.Printf("正在生成 mock 项目...\n")
	fmt.Printf("  目录数量: %d\n", cfg.NumDirs)
	fmt.Printf("  每目录文件数: %d\n", cfg.FilesPerDir)
	fmt.Printf("  总文件数: %d\n", cfg.NumDirs*(cfg.FilesPerDir+1))
	fmt.Printf("  引用密度: %.1f\n", cfg.ImportDensity)

	files, err := generateProject(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n✓ 项目生成完成: %s (%d 个文件)\n", cfg.OutputDir, len(files))
	fmt.Printf("\n下一步:\n")
	fmt.Printf("  jsdeps analyze %s -o .jsdeps.db\n", cfg.OutputDir)
}

// generateProject writes the mock project and returns its files
func generateProject(cfg *Config) ([]FileInfo, error) {
	if cfg.FilesPerDir < 1 {
		cfg.FilesPerDir = 1
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	layers := generateRegistry(cfg, rng)

	var all []FileInfo
	for layer, files := range layers {
		for _, f := range files {
			var content string
			if f.Name == "index" {
				content = generateIndex(f, files)
			} else {
				content = generateModule(cfg, rng, f, layers, layer)
			}
			if err := writeFile(cfg.OutputDir, f.RelPath(), content); err != nil {
				return nil, err
			}
			all = append(all, f)
		}
	}

	// 入口文件引用每一层的 index
	var sb strings.Builder
	for layer := range layers {
		fmt.Fprintf(&sb, "import * as layer%d from './src/layer%d';\n", layer, layer)
	}
	sb.WriteString("\nexport default {};\n")
	entry := FileInfo{Name: "main", Ext: ".js", Layer: -1}
	if err := writeFile(cfg.OutputDir, entry.RelPath(), sb.String()); err != nil {
		return nil, err
	}
	all = append(all, entry)

	// node_modules 中的文件不应被分析
	if err := writeFile(cfg.OutputDir, "node_modules/lodash/index.js", "module.exports = {};\n"); err != nil {
		return nil, err
	}

	return all, nil
}

// generateRegistry assigns files to layers; each layer has one index file last
func generateRegistry(cfg *Config, rng *rand.Rand) [][]FileInfo {
	layers := make([][]FileInfo, cfg.NumDirs)
	for layer := 0; layer < cfg.NumDirs; layer++ {
		dir := fmt.Sprintf("src/layer%d", layer)
		files := make([]FileInfo, 0, cfg.FilesPerDir+1)
		for i := 0; i < cfg.FilesPerDir; i++ {
			files = append(files, FileInfo{
				Dir:   dir,
				Name:  fmt.Sprintf("module%d", i),
				Ext:   extensions[rng.Intn(len(extensions))],
				Layer: layer,
			})
		}
		files = append(files, FileInfo{Dir: dir, Name: "index", Ext: ".js", Layer: layer})
		layers[layer] = files
	}
	return layers
}

// generateModule writes imports to deeper layers only, so the graph stays acyclic
func generateModule(cfg *Config, rng *rand.Rand, f FileInfo, layers [][]FileInfo, layer int) string {
	var sb strings.Builder

	n := int(cfg.ImportDensity)
	if rng.Float64() < cfg.ImportDensity-float64(n) {
		n++
	}

	for i := 0; i < n; i++ {
		if rng.Float64() < cfg.ExternalRatio || layer == len(layers)-1 {
			pkg := externalPackages[rng.Intn(len(externalPackages))]
			if rng.Intn(2) == 0 {
				fmt.Fprintf(&sb, "const dep%d = require('%s');\n", i, pkg)
			} else {
				fmt.Fprintf(&sb, "import dep%d from '%s';\n", i, pkg)
			}
			continue
		}

		targetLayer := layer + 1 + rng.Intn(len(layers)-layer-1)
		candidates := layers[targetLayer]
		target := candidates[rng.Intn(len(candidates)-1)]
		spec := fmt.Sprintf("../layer%d/%s", targetLayer, target.Name)
		if rng.Intn(2) == 0 {
			fmt.Fprintf(&sb, "import { value as dep%d } from \"%s\";\n", i, spec)
		} else {
			fmt.Fprintf(&sb, "const dep%d = require(\"%s\");\n", i, spec)
		}
	}

	sb.WriteString("\n")
	if strings.HasSuffix(f.Ext, "x") {
		fmt.Fprintf(&sb, "export function %s() {\n  return <div>%s</div>;\n}\n", componentName(f.Name), f.Name)
	} else if rng.Intn(3) == 0 {
		fmt.Fprintf(&sb, "module.exports = { name: '%s' };\nexports.value = %d;\n", f.Name, rng.Intn(1000))
	} else {
		fmt.Fprintf(&sb, "export const value = %d;\nexport default function %s() {}\n", rng.Intn(1000), f.Name)
	}
	return sb.String()
}

// generateIndex re-exports every module in the directory
func generateIndex(f FileInfo, siblings []FileInfo) string {
	var sb strings.Builder
	for _, s := range siblings {
		if s.Name == f.Name {
			continue
		}
		fmt.Fprintf(&sb, "export * from './%s';\n", s.Name)
	}
	return sb.String()
}

func componentName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func writeFile(root, rel, content string) error {
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
