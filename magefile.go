//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const reportDir = "./reports"

// Default 默认任务：显示帮助信息
func Default() {
	fmt.Println("vrcache 构建系统")
	fmt.Println("================")
	fmt.Println("可用任务:")
	fmt.Println("  mage build       - 构建 vrcache 二进制文件")
	fmt.Println("  mage test        - 运行所有测试")
	fmt.Println("  mage testRace    - 开启竞态检测运行测试")
	fmt.Println("  mage benchmark   - 运行缓存性能基准测试")
	fmt.Println("  mage run         - 使用默认配置启动服务")
	fmt.Println("  mage clean       - 清理构建产物")
	fmt.Println("  mage lint        - 运行代码检查")
	fmt.Println("  mage coverage    - 生成测试覆盖率报告")
}

// Build 构建二进制文件
func Build() error {
	mg.Deps(Clean)

	output := filepath.Join("./dist", "vrcache")
	if runtime.GOOS == "windows" {
		output += ".exe"
	}

	fmt.Println("📦 构建 vrcache...")
	cmd := exec.Command("go", "build", "-o", output, "./cmd/vrcache")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("构建 vrcache 失败: %v\n输出: %s", err, string(out))
	}

	if info, err := os.Stat(output); err == nil {
		fmt.Printf("   ✅ vrcache: %d MB\n", info.Size()/1024/1024)
	}
	return nil
}

// Test 运行所有测试
func Test() error {
	fmt.Println("🧪 运行测试...")
	return sh.RunV("go", "test", "./...", "-timeout=5m")
}

// TestRace 开启竞态检测运行测试，清扫任务和并发读写都在这里覆盖
func TestRace() error {
	fmt.Println("🏁 运行竞态检测...")
	return sh.RunV("go", "test", "-race", "./pkg/...", "-timeout=10m")
}

// Benchmark 运行性能基准测试
func Benchmark() error {
	fmt.Println("📊 运行性能基准测试...")

	if err := os.MkdirAll(reportDir, 0755); err != nil {
		return fmt.Errorf("创建报告目录失败: %v", err)
	}

	outputFile, err := os.Create(filepath.Join(reportDir, "benchmark.txt"))
	if err != nil {
		return fmt.Errorf("创建基准测试报告失败: %v", err)
	}
	defer outputFile.Close()

	cmd := exec.Command("go", "test", "./pkg/cache", "-bench=.", "-benchmem", "-run=^$", "-timeout=15m")
	cmd.Env = os.Environ()
	cmd.Stdout = outputFile
	cmd.Stderr = outputFile

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("基准测试失败: %v", err)
	}

	fmt.Println("✅ 基准测试完成! 报告保存到 " + filepath.Join(reportDir, "benchmark.txt"))
	return nil
}

// Run 构建并以调试日志启动服务
func Run() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join("./dist", "vrcache"), "-log-level", "debug")
}

// Clean 清理构建产物
func Clean() error {
	fmt.Println("🧹 清理构建产物...")

	if err := os.RemoveAll("./dist"); err != nil {
		return fmt.Errorf("清理 dist 目录失败: %v", err)
	}
	if err := os.MkdirAll("./dist", 0755); err != nil {
		return fmt.Errorf("创建 dist 目录失败: %v", err)
	}
	if err := os.RemoveAll(reportDir); err != nil {
		fmt.Printf("警告: 清理报告目录失败: %v\n", err)
	}
	return nil
}

// Lint 运行 gofmt 和 go vet
func Lint() error {
	fmt.Println("🔍 运行代码检查...")

	output, err := sh.Output("gofmt", "-l", ".")
	if err != nil {
		return fmt.Errorf("gofmt 检查失败: %v", err)
	}
	if output != "" {
		return fmt.Errorf("以下文件需要 gofmt:\n%s", output)
	}

	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return fmt.Errorf("go vet 失败: %v", err)
	}

	fmt.Println("✅ 代码检查通过!")
	return nil
}

// Coverage 生成测试覆盖率报告
func Coverage() error {
	fmt.Println("📈 生成测试覆盖率报告...")

	if err := os.MkdirAll(reportDir, 0755); err != nil {
		return fmt.Errorf("创建报告目录失败: %v", err)
	}

	profile := filepath.Join(reportDir, "coverage.out")
	if err := sh.Run("go", "test", "./pkg/...", "-coverprofile="+profile, "-covermode=atomic"); err != nil {
		return fmt.Errorf("生成覆盖率失败: %v", err)
	}

	html := filepath.Join(reportDir, "coverage.html")
	if err := sh.Run("go", "tool", "cover", "-html="+profile, "-o", html); err != nil {
		return fmt.Errorf("生成HTML报告失败: %v", err)
	}

	if err := sh.RunV("go", "tool", "cover", "-func="+profile); err != nil {
		return fmt.Errorf("显示覆盖率失败: %v", err)
	}

	fmt.Println("✅ 覆盖率报告生成完成: " + html)
	return nil
}
